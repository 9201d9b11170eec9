// Package styleparse turns a free-form style directive into a structured
// StyleConfig using LLM extraction validated against a JSON Schema.
//
// Style parsing is best-effort: callers treat any error here as a degraded
// stage and continue with default styling.
package styleparse

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/prompts"
	"github.com/jonathan/storyforge/internal/schemas"
	"github.com/jonathan/storyforge/internal/types"
)

// schemaRelPath is where the style config schema lives relative to the repo root.
const schemaRelPath = "schemas/style_config.schema.json"

// fallbackSchema is used when the schema file cannot be resolved on disk,
// such as when the binary runs from an installed location.
const fallbackSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "video_style": {"type": "object"},
    "visual_style": {"type": "object"},
    "audio_style": {"type": "object"}
  },
  "required": ["video_style", "visual_style", "audio_style"]
}`

// Parser extracts structured style preferences from a style directive.
type Parser struct {
	client llm.Client
}

// NewParser creates a Parser backed by the given LLM client.
func NewParser(client llm.Client) *Parser {
	return &Parser{client: client}
}

// Parse maps a style directive onto a StyleConfig. An empty directive yields
// a zero-value config without an LLM call.
func (p *Parser) Parse(ctx context.Context, styleDirective string) (*types.StyleConfig, error) {
	if styleDirective == "" {
		return &types.StyleConfig{}, nil
	}

	template := prompts.MustGet("styleparse.json", "parse-style-config")
	prompt := prompts.Format(template, map[string]string{
		"StyleDirective": styleDirective,
	})

	responseText, err := p.client.Generate(ctx, llm.Request{
		Prompt: prompt,
		Tier:   llm.TierLite,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("style extraction failed: %w", err)
	}

	responseText = llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateJSONString(loadSchema(), responseText); err != nil {
		return nil, fmt.Errorf("style config rejected by schema: %w", err)
	}

	var cfg types.StyleConfig
	if err := json.Unmarshal([]byte(responseText), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse style config JSON: %w", err)
	}

	return &cfg, nil
}

// loadSchema resolves the on-disk schema, falling back to the embedded copy.
func loadSchema() string {
	if path := schemas.ResolveSchemaPath(schemaRelPath); path != "" {
		if content, err := os.ReadFile(path); err == nil {
			return string(content)
		}
	}
	return fallbackSchema
}
