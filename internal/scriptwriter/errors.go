package scriptwriter

import "fmt"

// APICallError represents an error from the LLM API
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// GenerationError reports that script generation exhausted all retry attempts.
type GenerationError struct {
	Attempts int
	LastErr  error
}

func (e *GenerationError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("unable to generate script after %d attempts: %v", e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("unable to generate script after %d attempts", e.Attempts)
}

func (e *GenerationError) Unwrap() error {
	return e.LastErr
}
