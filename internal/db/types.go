package db

import (
	"time"

	"github.com/google/uuid"
)

// Job represents a generation job record
type Job struct {
	ID          uuid.UUID  `json:"id"`
	InputPrompt string     `json:"input_prompt"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ArtifactStep constants for known artifact types
const (
	StepParsedInput   = "parsed_input"
	StepStyleConfig   = "style_config"
	StepScript        = "script"
	StepAudio         = "audio"
	StepTranscription = "transcription"
	StepImagePrompts  = "image_prompts"
	StepImageBatch    = "image_batch"
	StepArtifact      = "artifact"
)

// Artifact category constants
const (
	CategoryParsing = "parsing"
	CategoryScript  = "script"
	CategoryAudio   = "audio"
	CategoryImages  = "images"
	CategoryOutput  = "output"
)
