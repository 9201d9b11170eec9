// Package scriptwriter generates narration scripts for short videos using the
// LLM, with retry, prompt variation, and TTS-oriented text cleaning.
package scriptwriter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/prompts"
	"github.com/jonathan/storyforge/internal/types"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = 5 * time.Second
	backoffFactor     = 1.5
	scriptTemperature = 0.85
)

// promptVariations are prefixed to the prompt on later retry attempts so a
// repeated failure is not retried with the identical input.
var promptVariations = []string{
	"Please provide a creative and detailed response to the following: ",
	"I need your help writing content about: ",
	"As an expert scriptwriter, please create content on: ",
	"Let's approach this from a different angle: ",
	"Considering this topic from a fresh perspective: ",
}

// prefixPatterns match label prefixes the model sometimes emits despite the
// system instruction, such as "Script:" or "[Narrator]".
var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*\(?\*?\s*script\s*\*?\)?\s*:\s*`),
	regexp.MustCompile(`(?im)^\s*\(?\*?\s*narrator\s*\*?\)?\s*:\s*`),
	regexp.MustCompile(`(?im)^\s*\(?\*?\s*full script\s*\*?\)?\s*:\s*`),
	regexp.MustCompile(`(?im)^\s*\(?\*?\s*scene\s*\*?\)?\s*:\s*`),
	regexp.MustCompile(`(?im)^\s*\(?\*?\s*text\s*\*?\)?\s*:\s*`),
	regexp.MustCompile(`(?im)^\s*\[script\]\s*`),
	regexp.MustCompile(`(?im)^\s*\[narrator\]\s*`),
}

// Writer generates complete narration scripts.
type Writer struct {
	client     llm.Client
	maxRetries int
	retryDelay time.Duration

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewWriter creates a Writer backed by the given LLM client.
func NewWriter(client llm.Client) *Writer {
	return &Writer{
		client:     client,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		sleep:      time.Sleep,
	}
}

// GenerateScript produces a complete script for the topic. Style preferences,
// when present, influence the requested tone and style keywords.
func (w *Writer) GenerateScript(ctx context.Context, topic string, style *types.StyleConfig) (*types.ScriptData, error) {
	info := PreprocessTopic(topic)

	text, err := w.generateWithRetry(ctx, info, style)
	if err != nil {
		return nil, err
	}

	return &types.ScriptData{
		FullScript:  text,
		Topic:       info.OriginalTopic,
		WordCount:   len(strings.Fields(text)),
		Analysis:    info.Analysis,
		Model:       w.client.GetModel(llm.TierStandard),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (w *Writer) generateWithRetry(ctx context.Context, info TopicInfo, style *types.StyleConfig) (string, error) {
	system := prompts.MustGet("scriptwriter.json", "system-full-script")
	prompt := buildScriptPrompt(info, style)

	var lastErr error
	for attempt := 0; attempt < w.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		responseText, err := w.client.Generate(ctx, llm.Request{
			System:      system,
			Prompt:      prompt,
			Tier:        llm.TierStandard,
			Temperature: scriptTemperature,
		})
		if err == nil {
			cleaned := CleanScriptText(responseText)
			if cleaned != "" {
				return cleaned, nil
			}
			err = &APICallError{Message: "empty script response"}
		}

		lastErr = err
		fmt.Printf("Error generating script (attempt %d/%d): %v\n", attempt+1, w.maxRetries, err)

		if attempt < w.maxRetries-1 {
			delay := backoffDelay(w.retryDelay, attempt)
			fmt.Printf("Waiting %.1f seconds before retrying...\n", delay.Seconds())
			w.sleep(delay)
		}

		if attempt > w.maxRetries/2 {
			prompt = varyPrompt(prompt, attempt)
		}
	}

	return "", &GenerationError{Attempts: w.maxRetries, LastErr: lastErr}
}

// backoffDelay computes the exponential backoff delay for an attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base)
	for i := 0; i < attempt; i++ {
		delay *= backoffFactor
	}
	return time.Duration(delay)
}

// varyPrompt prefixes the prompt with an attempt-dependent variation.
func varyPrompt(prompt string, attempt int) string {
	prefix := promptVariations[attempt%len(promptVariations)]
	return prefix + prompt
}

// CleanScriptText strips symbols and label prefixes that break TTS narration.
func CleanScriptText(text string) string {
	cleaned := strings.NewReplacer(`"`, "", "'", "", "*", "").Replace(text)
	for _, pattern := range prefixPatterns {
		cleaned = strings.TrimLeft(pattern.ReplaceAllString(cleaned, ""), " \t\n")
	}
	return strings.TrimSpace(cleaned)
}

// buildScriptPrompt assembles the user prompt from topic analysis and style
// preferences.
func buildScriptPrompt(info TopicInfo, style *types.StyleConfig) string {
	tone := info.Analysis.Tone
	styleKeywords := append([]string(nil), info.Analysis.StyleKeywords...)
	enhancement := info.Enhancement

	if style != nil {
		if style.VideoStyle.Genre != "" {
			styleKeywords = append([]string{style.VideoStyle.Genre}, styleKeywords...)
		}
		if style.AudioStyle.VoiceTone != "" {
			tone = style.AudioStyle.VoiceTone
		}
		if style.VisualStyle.ArtStyle != "" {
			direction := fmt.Sprintf("incorporate this visual direction where it shapes the narration: %s.", style.VisualStyle.ArtStyle)
			if enhancement != "" {
				enhancement += " Also, " + direction
			} else {
				enhancement = "Please " + direction
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "TOPIC: %s\n", info.CleanedTopic)
	sb.WriteString("REQUESTED VIDEO TYPE: Short video (under 60 seconds)\n")
	fmt.Fprintf(&sb, "TOPIC TYPE (for context): %s\n", info.Analysis.TopicType)
	fmt.Fprintf(&sb, "DESIRED TONE: %s\n", tone)
	if len(styleKeywords) > 0 {
		fmt.Fprintf(&sb, "DESIRED STYLE: %s\n", strings.Join(dedupe(styleKeywords), ", "))
	}
	if enhancement != "" {
		fmt.Fprintf(&sb, "\nENHANCEMENT INSTRUCTIONS: %s\n", enhancement)
	}

	sb.WriteString("\nSCRIPT REQUIREMENTS:\n")
	sb.WriteString("- Generate a complete, single, continuous script.\n")
	sb.WriteString("- The script should be engaging and suitable for a video of approximately 1 minute.\n")
	sb.WriteString("- Ensure a clear beginning (strong hook), middle (engaging body), and end (satisfying conclusion).\n")
	sb.WriteString("- Pure text only for TTS: no visual cues, formatting, or stage directions.\n")

	sb.WriteString("\nTOPIC-SPECIFIC GUIDELINES:\n")
	switch {
	case info.Analysis.TopicType == "educational":
		fmt.Fprintf(&sb, "- Your primary goal is to clearly explain '%s'.\n", info.CleanedTopic)
		sb.WriteString("- Use analogies, simple language, and structure the information logically for learning.\n")
		sb.WriteString("- Focus on 1-2 key concise points due to the short format.\n")
	case info.Analysis.TopicType == "storytelling":
		fmt.Fprintf(&sb, "- Your primary goal is to tell an engaging story about '%s'.\n", info.CleanedTopic)
		sb.WriteString("- Focus on creating a clear narrative arc with a beginning, rising action, climax, and resolution.\n")
		sb.WriteString("- Build emotional engagement appropriate to the story.\n")
	case info.Analysis.TopicType == "comparison":
		fmt.Fprintf(&sb, "- Your primary goal is to compare elements related to '%s'.\n", info.CleanedTopic)
		sb.WriteString("- Present pros and cons, key differences, or similarities in a balanced and clear way.\n")
	case info.Analysis.TopicType == "entertainment" && tone == "humorous":
		fmt.Fprintf(&sb, "- Your primary goal is to entertain and be humorous about '%s'.\n", info.CleanedTopic)
		sb.WriteString("- Use wit, wordplay, or amusing anecdotes. Keep the energy light and engaging.\n")
	default:
		fmt.Fprintf(&sb, "- Present information or tell a story about '%s' in an engaging and clear manner.\n", info.CleanedTopic)
		sb.WriteString("- Ensure the content is well-structured and easy to follow.\n")
	}

	return sb.String()
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			out = append(out, item)
			seen[item] = true
		}
	}
	return out
}
