// Package server provides the HTTP REST API for the video asset pipeline.
package server

import (
	"fmt"
	"net/http"
)

// ErrJobNotFound indicates no job exists for the requested ID
type ErrJobNotFound struct {
	JobID string
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// ErrResultNotReady indicates the job has not reached Completed yet
type ErrResultNotReady struct {
	JobID  string
	Status string
}

func (e *ErrResultNotReady) Error() string {
	return fmt.Sprintf("job %s is %s, result not ready", e.JobID, e.Status)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrJobNotFound:
		return http.StatusNotFound
	case *ErrResultNotReady:
		return http.StatusTooEarly
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
