package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxPromptLength is the length bound enforced on submitted input prompts.
const MaxPromptLength = 500

// JobStatus is the lifecycle state of one generation job.
type JobStatus string

// Job lifecycle states. Completed and Failed are terminal.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job tracks one generation request from submission to terminal state.
// Exactly one orchestrator run is associated with a job.
type Job struct {
	ID           string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	InputPrompt  string    `json:"input_prompt"`
	Result       *Artifact `json:"result,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
}

// GenerateRequest is the job submission payload.
type GenerateRequest struct {
	InputPrompt string `json:"input_prompt" validate:"required,min=1,max=500"`
}

// Validate validates the GenerateRequest using the validator.
func (r *GenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
