package speech

import "fmt"

// APICallError represents a failed TTS provider call.
type APICallError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("TTS call failed: %s: %v", e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("TTS call failed: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("TTS call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
