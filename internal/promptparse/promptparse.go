// Package promptparse splits a user's free-form input prompt into a content
// topic and an optional style hint, using LLM extraction with a deterministic
// heuristic fallback.
package promptparse

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/prompts"
	"github.com/jonathan/storyforge/internal/types"
)

// DefaultSeparators are the style-hint markers tried by HeuristicSplit when
// no explicit separator list is configured.
var DefaultSeparators = []string{" in ", " with "}

// Parser extracts topic and style from an input prompt via the LLM.
type Parser struct {
	client llm.Client
}

// NewParser creates a Parser backed by the given LLM client.
func NewParser(client llm.Client) *Parser {
	return &Parser{client: client}
}

// Parse extracts a topic and style hint from the input prompt.
// The returned error is non-nil when the LLM call or response parsing fails;
// callers should fall back to HeuristicSplit in that case.
func (p *Parser) Parse(ctx context.Context, inputPrompt string) (*types.ParsedInput, error) {
	template := prompts.MustGet("promptparse.json", "parse-input-prompt")
	prompt := prompts.Format(template, map[string]string{
		"InputPrompt": inputPrompt,
	})

	responseText, err := p.client.Generate(ctx, llm.Request{
		Prompt: prompt,
		Tier:   llm.TierLite,
		JSON:   true,
	})
	if err != nil {
		return nil, &APICallError{
			Message: "failed to parse input prompt",
			Cause:   err,
		}
	}

	responseText = llm.CleanJSONBlock(responseText)

	var parsed types.ParsedInput
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, &ParseError{
			Message: "failed to parse topic/style JSON",
			Cause:   err,
		}
	}

	parsed.Topic = strings.TrimSpace(parsed.Topic)
	parsed.StyleDirective = strings.TrimSpace(parsed.StyleDirective)

	// An empty topic means the model lost the request entirely. Treat it the
	// same as a failed call so the heuristic can recover the original text.
	if parsed.Topic == "" {
		return nil, &ParseError{Message: "LLM returned an empty topic"}
	}

	return &parsed, nil
}

// HeuristicSplit splits an input prompt on the last occurrence of the first
// matching separator. Everything before the separator becomes the topic and
// everything after it becomes the style hint. When no separator matches, the
// whole prompt is the topic and the style hint is empty.
//
// Original casing is preserved on both sides.
func HeuristicSplit(inputPrompt string, separators []string) *types.ParsedInput {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	trimmed := strings.TrimSpace(inputPrompt)
	for _, sep := range separators {
		idx := strings.LastIndex(trimmed, sep)
		if idx < 0 {
			continue
		}
		topic := strings.TrimSpace(trimmed[:idx])
		style := strings.TrimSpace(trimmed[idx+len(sep):])
		if topic == "" || style == "" {
			continue
		}
		return &types.ParsedInput{Topic: topic, StyleDirective: style}
	}

	return &types.ParsedInput{Topic: trimmed}
}
