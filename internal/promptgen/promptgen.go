// Package promptgen produces one illustration prompt per transcription
// segment in a single batched LLM call.
//
// Batch failure is not fatal: every segment falls back to a trivial prompt
// derived from its text and the error is reported alongside the data.
package promptgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/prompts"
	"github.com/jonathan/storyforge/internal/types"
)

const (
	maxRetries        = 3
	retryDelay        = 2 * time.Second
	promptTemperature = 0.7
)

// Generator creates per-segment illustration prompts.
type Generator struct {
	client llm.Client

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewGenerator creates a Generator backed by the given LLM client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client, sleep: time.Sleep}
}

// segmentContext is what the LLM sees for each segment.
type segmentContext struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	PreviousText *string `json:"previous_text"`
}

// GeneratePrompts fills ImagePrompt on every segment of the transcription.
// When the batched call fails after retries, segments get fallback prompts,
// BatchGenerated is false, and the returned error describes the failure.
// The returned PromptData is always usable.
func (g *Generator) GeneratePrompts(ctx context.Context, transcription *types.Transcription, topic string, style *types.StyleConfig) (*types.PromptData, error) {
	segments := transcription.Segments

	batch, batchErr := g.generateBatch(ctx, segments, topic, style)

	out := make([]types.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if prompt, ok := batch[strconv.Itoa(seg.Ordinal)]; ok && strings.TrimSpace(prompt) != "" {
			out[i].ImagePrompt = prompt
		} else {
			out[i].ImagePrompt = types.FallbackImagePrompt(seg.Text)
		}
	}

	data := &types.PromptData{
		Segments:       out,
		Count:          len(out),
		BatchGenerated: batchErr == nil,
		GeneratedAt:    time.Now().UTC(),
	}
	if batchErr != nil {
		data.Error = batchErr.Error()
	}

	return data, batchErr
}

// generateBatch asks the LLM for all prompts at once, keyed by ordinal.
func (g *Generator) generateBatch(ctx context.Context, segments []types.Segment, topic string, style *types.StyleConfig) (map[string]string, error) {
	system := prompts.MustGet("promptgen.json", "system-art-director")
	prompt := buildBatchPrompt(segments, topic, style)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		responseText, err := g.client.Generate(ctx, llm.Request{
			System:      system,
			Prompt:      prompt,
			Tier:        llm.TierStandard,
			Temperature: promptTemperature,
			JSON:        true,
		})
		if err == nil {
			responseText = llm.CleanJSONBlock(responseText)
			var batch map[string]string
			jsonErr := json.Unmarshal([]byte(responseText), &batch)
			if jsonErr == nil {
				return batch, nil
			}
			err = fmt.Errorf("failed to parse batch prompt JSON: %w", jsonErr)
		}

		lastErr = err
		fmt.Printf("Batch prompt generation attempt %d/%d failed: %v\n", attempt+1, maxRetries, err)
		if attempt < maxRetries-1 {
			g.sleep(retryDelay)
		}
	}

	return nil, lastErr
}

// buildBatchPrompt assembles the user prompt with topic, style prefix, and
// segment contexts.
func buildBatchPrompt(segments []types.Segment, topic string, style *types.StyleConfig) string {
	styleDetails := styleDetailsPrefix(style)

	contexts := make([]segmentContext, len(segments))
	var previous *string
	for i, seg := range segments {
		contexts[i] = segmentContext{
			ID:           strconv.Itoa(seg.Ordinal),
			Text:         seg.Text,
			PreviousText: previous,
		}
		text := seg.Text
		previous = &text
	}
	segmentsJSON, _ := json.MarshalIndent(contexts, "", "  ")

	var sb strings.Builder
	sb.WriteString("Generate an image prompt for each segment provided below. Use the 'previous_text' for narrative context.\n\n")
	sb.WriteString("INSTRUCTIONS FOR EACH GENERATED PROMPT:\n")
	sb.WriteString("1. Style consistency: if an overall visual style is provided below, every generated prompt must include these exact style details as its first part.\n")
	sb.WriteString("2. Narrative accuracy: the descriptive details must accurately visualize the specific content, actions, objects, and setting described in the current segment's text field.\n")
	sb.WriteString("3. Do not use proper names in the prompts; describe subjects visually instead.\n\n")
	fmt.Fprintf(&sb, "Video topic: %s\n", topic)
	if styleDetails != "" {
		fmt.Fprintf(&sb, "Overall visual style: %s\n", styleDetails)
	} else {
		sb.WriteString("Overall visual style: not specified. Apply sound art direction per segment.\n")
	}
	fmt.Fprintf(&sb, "\nSegments for prompt generation:\n%s\n\n", segmentsJSON)
	sb.WriteString("Return a single JSON object where keys are the segment 'id' strings and values are the fully constructed image prompts.\n")
	sb.WriteString(`Example JSON output: {"0": "prompt text 0", "1": "prompt text 1"}`)

	return sb.String()
}

// styleDetailsPrefix flattens visual style preferences into a prompt prefix.
func styleDetailsPrefix(style *types.StyleConfig) string {
	if style == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{
		style.VisualStyle.ArtStyle,
		style.VisualStyle.ColorPalette,
		style.VisualStyle.Lighting,
		style.VisualStyle.Composition,
	} {
		if p != "" && p != "null" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
