package pipeline

import (
	"context"

	"github.com/jonathan/storyforge/internal/types"
)

// PromptParser splits the combined input prompt into topic and style
// directive. The orchestrator falls back to a heuristic split when it fails.
type PromptParser interface {
	Parse(ctx context.Context, inputPrompt string) (*types.ParsedInput, error)
}

// StyleParser turns a free-form style directive into a structured config.
type StyleParser interface {
	Parse(ctx context.Context, styleDirective string) (*types.StyleConfig, error)
}

// ScriptWriter generates the full narration script. Failure is fatal.
type ScriptWriter interface {
	GenerateScript(ctx context.Context, topic string, style *types.StyleConfig) (*types.ScriptData, error)
}

// SpeechSynthesizer turns the script into stored audio. Failure is fatal.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (*types.AudioInfo, error)
}

// Transcriber produces timed segments from the synthesized audio. Failure is
// fatal.
type Transcriber interface {
	ProcessAudio(ctx context.Context, audio *types.AudioInfo) (*types.Transcription, error)
}

// PromptGenerator produces an illustration prompt per segment. Failure is
// non-fatal: when it errors or returns no data, the orchestrator substitutes
// per-segment fallback prompts and continues.
type PromptGenerator interface {
	GeneratePrompts(ctx context.Context, transcription *types.Transcription, topic string, style *types.StyleConfig) (*types.PromptData, error)
}

// ImageGenerator is the per-task capability plugged into the batch executor.
type ImageGenerator interface {
	GenerateOne(ctx context.Context, prompt, segmentID string) (*types.ImageResult, error)
	Healthy(ctx context.Context) error
}
