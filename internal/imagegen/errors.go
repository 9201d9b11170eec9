package imagegen

import (
	"fmt"
	"time"
)

// RateLimitedError reports that the provider returned a rate-limit response.
// Callers detect it through the RateLimited method rather than matching
// message text.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("image provider rate limited, retry after %s", e.RetryAfter)
	}
	return "image provider rate limited"
}

// RateLimited marks this error as a rate-limit signal.
func (e *RateLimitedError) RateLimited() bool { return true }

// GenerateError reports a failed image generation after retries.
type GenerateError struct {
	SegmentID string
	Message   string
	Cause     error
}

func (e *GenerateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image generation failed for %s: %s: %v", e.SegmentID, e.Message, e.Cause)
	}
	return fmt.Sprintf("image generation failed for %s: %s", e.SegmentID, e.Message)
}

func (e *GenerateError) Unwrap() error {
	return e.Cause
}
