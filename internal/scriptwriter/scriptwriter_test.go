package scriptwriter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/types"
)

// scriptedClient returns queued responses in order, then repeats the last one.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	idx := c.calls
	c.calls++
	c.prompts = append(c.prompts, req.Prompt)
	resp := c.responses[min(idx, len(c.responses)-1)]
	var err error
	if idx < len(c.errs) {
		err = c.errs[idx]
	}
	return resp, err
}

func (c *scriptedClient) GetModel(tier llm.ModelTier) string { return "test-model" }

func (c *scriptedClient) Close() error { return nil }

func newTestWriter(client llm.Client) *Writer {
	w := NewWriter(client)
	w.sleep = func(time.Duration) {}
	return w
}

func TestCleanScriptText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips quotes and asterisks",
			input: `The "greatest" trick was *never* seen. It wasn't real.`,
			want:  "The greatest trick was never seen. It wasnt real.",
		},
		{
			name:  "strips script prefix",
			input: "Script: Once upon a time there was a volcano.",
			want:  "Once upon a time there was a volcano.",
		},
		{
			name:  "strips bracketed narrator label",
			input: "[Narrator] The ocean hides its secrets well.",
			want:  "The ocean hides its secrets well.",
		},
		{
			name:  "strips parenthesized label with colon",
			input: "(Script): Here is something amazing.",
			want:  "Here is something amazing.",
		},
		{
			name:  "plain text untouched",
			input: "Ten seconds from now you will understand gravity.",
			want:  "Ten seconds from now you will understand gravity.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanScriptText(tt.input))
		})
	}
}

func TestGenerateScript(t *testing.T) {
	client := &scriptedClient{responses: []string{"Here is an amazing fact about volcanoes that will change how you see the earth."}}
	w := newTestWriter(client)

	data, err := w.GenerateScript(context.Background(), "How volcanoes work", nil)
	require.NoError(t, err)
	assert.Equal(t, "How volcanoes work", data.Topic)
	assert.Equal(t, 15, data.WordCount)
	assert.Equal(t, "test-model", data.Model)
	assert.Equal(t, 1, client.calls)
}

func TestGenerateScriptRetriesThenSucceeds(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"", "", "The hidden history of jazz starts in a single room."},
		errs:      []error{errors.New("quota"), errors.New("quota"), nil},
	}
	w := newTestWriter(client)

	data, err := w.GenerateScript(context.Background(), "The history of jazz", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
	assert.Contains(t, data.FullScript, "jazz")
}

func TestGenerateScriptExhaustsRetries(t *testing.T) {
	client := &scriptedClient{
		responses: []string{""},
		errs:      []error{errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down")},
	}
	w := newTestWriter(client)

	_, err := w.GenerateScript(context.Background(), "Anything", nil)
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, defaultMaxRetries, genErr.Attempts)
	assert.Equal(t, defaultMaxRetries, client.calls)
}

func TestGenerateScriptVariesPromptOnLateRetries(t *testing.T) {
	client := &scriptedClient{
		responses: []string{""},
		errs:      []error{errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down")},
	}
	w := newTestWriter(client)

	_, err := w.GenerateScript(context.Background(), "Anything", nil)
	require.Error(t, err)
	require.Equal(t, defaultMaxRetries, len(client.prompts))
	// Attempts past the halfway point get a variation prefix.
	assert.Equal(t, client.prompts[0], client.prompts[1])
	assert.NotEqual(t, client.prompts[0], client.prompts[4])
}

func TestGenerateScriptAppliesStyleConfig(t *testing.T) {
	client := &scriptedClient{responses: []string{"A noir take on city pigeons."}}
	w := newTestWriter(client)

	style := &types.StyleConfig{}
	style.VideoStyle.Genre = "documentary"
	style.AudioStyle.VoiceTone = "somber"

	_, err := w.GenerateScript(context.Background(), "City pigeons", style)
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "DESIRED TONE: somber")
	assert.Contains(t, client.prompts[0], "documentary")
}

func TestPreprocessTopic(t *testing.T) {
	tests := []struct {
		name            string
		topic           string
		wantType        string
		wantTone        string
		wantCleaned     string
		wantEnhancement string
	}{
		{
			name:        "educational",
			topic:       "How to bake sourdough bread",
			wantType:    "educational",
			wantTone:    "neutral",
			wantCleaned: "How to bake sourdough bread",
		},
		{
			name:     "storytelling",
			topic:    "The story of the lost expedition",
			wantType: "storytelling",
			// "lost" does not trip the tone keywords
			wantTone:    "neutral",
			wantCleaned: "The story of the lost expedition",
		},
		{
			name:     "entertainment topic",
			topic:    "Funny cat moments",
			wantType: "entertainment",
			// "funny" contains "fun", which the tone scan matches
			wantTone:    "lighthearted",
			wantCleaned: "Funny cat moments",
		},
		{
			name:            "enhancement phrase stripped",
			topic:           "Deep sea creatures make it exciting",
			wantType:        "general",
			wantTone:        "neutral",
			wantCleaned:     "Deep sea creatures",
			wantEnhancement: "make it exciting",
		},
		{
			name:        "tone override",
			topic:       "Important climate facts",
			wantType:    "general",
			wantTone:    "serious",
			wantCleaned: "Important climate facts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := PreprocessTopic(tt.topic)
			assert.Equal(t, tt.wantType, info.Analysis.TopicType)
			assert.Equal(t, tt.wantTone, info.Analysis.Tone)
			assert.Equal(t, tt.wantCleaned, info.CleanedTopic)
			assert.Equal(t, tt.wantEnhancement, info.Enhancement)
			assert.Equal(t, tt.topic, info.OriginalTopic)
		})
	}
}

func TestPreprocessTopicStyleKeywords(t *testing.T) {
	info := PreprocessTopic("A documentary about coral reefs")
	assert.Equal(t, []string{"documentary"}, info.Analysis.StyleKeywords)
}
