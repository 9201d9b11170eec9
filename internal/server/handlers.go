package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/storyforge/internal/db"
	"github.com/jonathan/storyforge/internal/pipeline"
	"github.com/jonathan/storyforge/internal/types"
)

// progressRunner is implemented by runners that can report per-stage progress.
type progressRunner interface {
	RunWithProgress(ctx context.Context, jobID, inputPrompt string, onProgress pipeline.ProgressCallback) (*types.Artifact, string, error)
}

// statusResponse is the polling payload for one job.
type statusResponse struct {
	JobID       string          `json:"job_id"`
	Status      types.JobStatus `json:"status"`
	InputPrompt string          `json:"input_prompt"`
	Result      *types.Artifact `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// handleGenerate accepts a job submission and starts the pipeline detached
// from the request/response cycle.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "input_prompt is required and must be at most 500 characters")
		return
	}

	job := s.jobs.Create(req.InputPrompt)

	go s.runJob(job.ID, req.InputPrompt)

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// handleGenerateStream runs the pipeline synchronously, streaming stage
// progress as Server-Sent Events.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "input_prompt is required and must be at most 500 characters")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	job := s.jobs.Create(req.InputPrompt)
	if err := s.jobs.MarkRunning(job.ID); err != nil {
		sse.WriteError(err.Error())
		return
	}

	onProgress := func(event pipeline.ProgressEvent) {
		_ = sse.WriteEvent("progress", event)
	}

	var artifact *types.Artifact
	var path string
	if pr, ok := s.runner.(progressRunner); ok {
		artifact, path, err = pr.RunWithProgress(r.Context(), job.ID, req.InputPrompt, onProgress)
	} else {
		artifact, path, err = s.runner.Run(r.Context(), job.ID, req.InputPrompt)
	}

	if err != nil {
		_ = s.jobs.Fail(job.ID, err.Error())
		sse.WriteError(err.Error())
		sse.WriteComplete(job.ID, string(types.JobFailed))
		return
	}

	_ = s.jobs.Complete(job.ID, artifact, path)
	_ = sse.WriteEvent("result", artifact)
	sse.WriteComplete(job.ID, string(types.JobCompleted))
}

// runJob executes one detached pipeline run and records its terminal state.
func (s *Server) runJob(jobID, inputPrompt string) {
	if err := s.jobs.MarkRunning(jobID); err != nil {
		log.Printf("Failed to mark job %s running: %v", jobID, err)
		return
	}

	artifact, path, err := s.runner.Run(context.Background(), jobID, inputPrompt)
	if err != nil {
		if failErr := s.jobs.Fail(jobID, err.Error()); failErr != nil {
			log.Printf("Failed to record job %s failure: %v", jobID, failErr)
		}
		return
	}

	if completeErr := s.jobs.Complete(jobID, artifact, path); completeErr != nil {
		log.Printf("Failed to record job %s completion: %v", jobID, completeErr)
	}
}

// handleStatus returns the current state of a job. Jobs evicted from the
// in-memory index fall back to the database archive when one is configured.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.jobs.Get(jobID)
	if err != nil {
		if archived, ok := s.archivedJob(r.Context(), jobID); ok {
			s.jsonResponse(w, http.StatusOK, statusResponse{
				JobID:       jobID,
				Status:      types.JobStatus(archived.Status),
				InputPrompt: archived.InputPrompt,
			})
			return
		}
		s.errorResponse(w, HTTPStatus(&ErrJobNotFound{JobID: jobID}), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, statusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		InputPrompt: job.InputPrompt,
		Error:       job.Error,
	})
}

// handleResult returns the artifact for a completed job. Until the job
// completes the result is not ready; a failed job reports its error. Evicted
// jobs are served from the persisted artifact archive when one is configured.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.jobs.Get(jobID)
	if err != nil {
		if doc, ok := s.archivedArtifact(r.Context(), jobID); ok {
			s.jsonResponse(w, http.StatusOK, map[string]any{
				"job_id":   jobID,
				"artifact": doc,
			})
			return
		}
		s.errorResponse(w, HTTPStatus(&ErrJobNotFound{JobID: jobID}), err.Error())
		return
	}

	if job.Status != types.JobCompleted {
		notReady := &ErrResultNotReady{JobID: jobID, Status: string(job.Status)}
		s.errorResponse(w, HTTPStatus(notReady), notReady.Error())
		return
	}

	if job.Result == nil {
		s.errorResponse(w, http.StatusInternalServerError, "job completed but artifact payload is missing")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"job_id":        job.ID,
		"artifact":      job.Result,
		"artifact_path": job.ArtifactPath,
	})
}

// archivedJob looks up an evicted job's row in the database archive.
func (s *Server) archivedJob(ctx context.Context, jobID string) (*db.Job, bool) {
	if s.archive == nil {
		return nil, false
	}
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, false
	}
	job, err := s.archive.GetJob(ctx, id)
	if err != nil {
		log.Printf("Failed to read archived job %s: %v", jobID, err)
		return nil, false
	}
	return job, job != nil
}

// archivedArtifact loads an evicted job's persisted artifact document.
func (s *Server) archivedArtifact(ctx context.Context, jobID string) (*types.Artifact, bool) {
	if s.archive == nil {
		return nil, false
	}
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, false
	}
	doc, err := s.archive.GetArtifactDoc(ctx, id)
	if err != nil {
		log.Printf("Failed to read archived artifact %s: %v", jobID, err)
		return nil, false
	}
	return doc, doc != nil
}
