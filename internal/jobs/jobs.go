// Package jobs tracks generation jobs from submission to terminal state.
//
// The store is owned by the dispatcher; the orchestrator mutates a job only
// through it. Reads return value snapshots so status polling never observes
// a half-written record.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/storyforge/internal/types"
)

// NotFoundError indicates a job ID with no record in the store.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// Store is the job index consumed by the dispatcher and the orchestrator.
type Store interface {
	// Create registers a new pending job and returns its snapshot.
	Create(inputPrompt string) types.Job
	// Get returns a snapshot of the job, or NotFoundError.
	Get(jobID string) (types.Job, error)
	// MarkRunning transitions a pending job to running.
	MarkRunning(jobID string) error
	// Complete transitions a job to its terminal completed state with its
	// result. Transitions on an already-terminal job are ignored.
	Complete(jobID string, result *types.Artifact, artifactPath string) error
	// Fail transitions a job to its terminal failed state with an error
	// string. Transitions on an already-terminal job are ignored.
	Fail(jobID string, errMsg string) error
	// CleanupOlderThan removes terminal jobs that ended before the cutoff
	// age and returns how many were removed. Running and pending jobs are
	// never removed.
	CleanupOlderThan(age time.Duration) int
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store guarded by a read-write lock.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*types.Job),
		now:  time.Now,
	}
}

// Create registers a new pending job.
func (s *MemoryStore) Create(inputPrompt string) types.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &types.Job{
		ID:          uuid.NewString(),
		Status:      types.JobPending,
		InputPrompt: inputPrompt,
		CreatedAt:   s.now().UTC(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Get returns a snapshot of the job.
func (s *MemoryStore) Get(jobID string) (types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return types.Job{}, &NotFoundError{JobID: jobID}
	}
	return *job, nil
}

// MarkRunning transitions a pending job to running.
func (s *MemoryStore) MarkRunning(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return &NotFoundError{JobID: jobID}
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = types.JobRunning
	return nil
}

// Complete transitions a job to completed with its result.
func (s *MemoryStore) Complete(jobID string, result *types.Artifact, artifactPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return &NotFoundError{JobID: jobID}
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = types.JobCompleted
	job.Result = result
	job.ArtifactPath = artifactPath
	job.EndedAt = s.now().UTC()
	return nil
}

// Fail transitions a job to failed with an error string.
func (s *MemoryStore) Fail(jobID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return &NotFoundError{JobID: jobID}
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = types.JobFailed
	job.Error = errMsg
	job.EndedAt = s.now().UTC()
	return nil
}

// CleanupOlderThan removes terminal jobs that ended before the cutoff age.
// Persisted artifacts on disk are untouched.
func (s *MemoryStore) CleanupOlderThan(age time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-age)
	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.EndedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
