package scriptwriter

import (
	"strings"

	"github.com/jonathan/storyforge/internal/types"
)

// TopicInfo is the result of analyzing a raw topic string before prompting.
type TopicInfo struct {
	CleanedTopic  string
	Enhancement   string
	OriginalTopic string
	Analysis      types.TopicAnalysis
}

// enhancementPhrases are generic trailing requests that are stripped from the
// topic and forwarded as separate instructions.
var enhancementPhrases = []string{
	"make it exciting",
	"make it so exciting",
	"make it interesting",
}

var stylePhrases = []struct {
	style   string
	phrases []string
}{
	{"documentary", []string{"documentary", "factual", "real story"}},
	{"vlog", []string{"vlog", "personal", "my experience"}},
	{"explainer", []string{"explainer", "whiteboard", "simple explanation"}},
	{"news", []string{"news", "report", "breaking"}},
	{"ad", []string{"ad", "commercial", "promo"}},
}

// PreprocessTopic cleans the raw topic and classifies its type, tone, and any
// style keywords it carries.
func PreprocessTopic(topic string) TopicInfo {
	cleaned := strings.TrimSpace(topic)
	cleaned = strings.ReplaceAll(cleaned, "(.", "")
	cleaned = strings.ReplaceAll(cleaned, ".)", "")

	topicType := "general"
	tone := "neutral"
	var styleKeywords []string
	enhancement := ""

	lower := strings.ToLower(cleaned)

	switch {
	case containsAny(lower, "how to", "tutorial", "guide", "explain"):
		topicType = "educational"
	case containsAny(lower, "story", "tale", "narrative", "experience"):
		topicType = "storytelling"
	case containsAny(lower, "review", "compare", "vs", "versus"):
		topicType = "comparison"
	case containsAny(lower, "funny", "humor", "comedy", "joke"):
		topicType = "entertainment"
		tone = "humorous"
	}

	switch {
	case containsAny(lower, "serious", "important", "critical"):
		tone = "serious"
	case containsAny(lower, "dramatic", "emotional", "heartfelt"):
		tone = "dramatic"
	case containsAny(lower, "light", "fun", "entertaining"):
		tone = "lighthearted"
	}

	for _, sp := range stylePhrases {
		if containsAny(lower, sp.phrases...) {
			styleKeywords = append(styleKeywords, sp.style)
		}
	}

	for _, phrase := range enhancementPhrases {
		if strings.HasSuffix(strings.ToLower(cleaned), phrase) {
			cleaned = strings.TrimSpace(cleaned[:len(cleaned)-len(phrase)])
			enhancement = phrase
			break
		}
	}

	return TopicInfo{
		CleanedTopic:  cleaned,
		Enhancement:   enhancement,
		OriginalTopic: topic,
		Analysis: types.TopicAnalysis{
			TopicType:     topicType,
			Tone:          tone,
			StyleKeywords: styleKeywords,
		},
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
