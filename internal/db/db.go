// Package db provides PostgreSQL database access for job and artifact storage.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/storyforge/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateJob creates a generation job record under the caller's job ID so the
// row stays addressable by the same identifier the HTTP surface hands out.
func (db *DB) CreateJob(ctx context.Context, jobID uuid.UUID, inputPrompt string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO generation_jobs (id, input_prompt, status)
		 VALUES ($1, $2, 'running')`,
		jobID, inputPrompt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// CompleteJob marks a generation job as completed or failed
func (db *DB) CompleteJob(ctx context.Context, jobID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for a generation job
func (db *DB) SaveArtifact(ctx context.Context, jobID uuid.UUID, step, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO artifacts (job_id, step, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id, step) DO UPDATE SET category = $3, content = $4, created_at = NOW()`,
		jobID, step, category, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// SaveCheckpoint stores one image batch checkpoint. Checkpoints are keyed by
// group so a rerun overwrites the matching group, not the whole batch.
func (db *DB) SaveCheckpoint(ctx context.Context, jobID uuid.UUID, checkpoint *types.BatchCheckpoint) error {
	step := fmt.Sprintf("%s_%d", StepImageBatch, checkpoint.GroupIndex)
	return db.SaveArtifact(ctx, jobID, step, CategoryImages, checkpoint)
}

// GetArtifact retrieves a JSON artifact by job ID and step
func (db *DB) GetArtifact(ctx context.Context, jobID uuid.UUID, step string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM artifacts WHERE job_id = $1 AND step = $2`,
		jobID, step,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// GetArtifactDoc loads the final artifact document for a job
func (db *DB) GetArtifactDoc(ctx context.Context, jobID uuid.UUID) (*types.Artifact, error) {
	content, err := db.GetArtifact(ctx, jobID, StepArtifact)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var artifact types.Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	return &artifact, nil
}

// GetJob retrieves a generation job by ID
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	var job Job
	err := db.pool.QueryRow(ctx,
		`SELECT id, input_prompt, status, created_at, completed_at
		 FROM generation_jobs WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &job.InputPrompt, &job.Status, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs retrieves recent generation jobs
func (db *DB) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, input_prompt, status, created_at, completed_at
		 FROM generation_jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.InputPrompt, &job.Status, &job.CreatedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
