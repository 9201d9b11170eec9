package transcriber

import "fmt"

// TranscribeError represents a failed transcription step.
type TranscribeError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *TranscribeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcription failed: %s: %v", e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transcription failed: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

func (e *TranscribeError) Unwrap() error {
	return e.Cause
}
