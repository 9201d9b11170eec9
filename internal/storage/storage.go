// Package storage manages the on-disk layout for job artifacts, per-job
// scratch files, and generated media blobs.
//
// Layout under the base directory:
//
//	<base>/video_<job>.json            final artifact documents
//	<base>/jobs/<job>/{audio,images,scripts}   per-job scratch, purged on completion
//	<base>/blobs/<name>                generated media, addressable by URL
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/storyforge/internal/types"
)

// scratch subdirectories created for each job.
var scratchSubdirs = []string{"audio", "images", "scripts"}

// Manager owns the local storage tree.
type Manager struct {
	base string
	// publicBaseURL, when set, is the URL prefix under which blobs are served.
	publicBaseURL string
}

// NewManager creates a Manager rooted at base. The directory is created if
// missing.
func NewManager(base, publicBaseURL string) (*Manager, error) {
	if base == "" {
		base = "assets"
	}
	for _, dir := range []string{base, filepath.Join(base, "blobs")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &Manager{base: base, publicBaseURL: publicBaseURL}, nil
}

// Base returns the root directory of the storage tree.
func (m *Manager) Base() string { return m.base }

// SaveJSON writes doc as indented JSON under base/subdir/filename. A missing
// .json extension is appended. Returns the full path written.
func (m *Manager) SaveJSON(doc any, filename, subdir string) (string, error) {
	if filepath.Ext(filename) != ".json" {
		filename += ".json"
	}

	dir := m.base
	if subdir != "" {
		dir = filepath.Join(m.base, subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", filename, err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// LoadJSON reads a JSON document written by SaveJSON into out.
func (m *Manager) LoadJSON(filename, subdir string, out any) error {
	if filepath.Ext(filename) != ".json" {
		filename += ".json"
	}

	dir := m.base
	if subdir != "" {
		dir = filepath.Join(m.base, subdir)
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return json.Unmarshal(data, out)
}

// Put stores a media blob and returns the URL it is reachable at. Without a
// configured public base URL the local path is returned.
func (m *Manager) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	path := filepath.Join(m.base, "blobs", name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store blob %s: %w", name, err)
	}
	if m.publicBaseURL != "" {
		return m.publicBaseURL + "/" + name, nil
	}
	return path, nil
}

// JobScratchDir returns (and creates) the scratch directory tree for a job.
func (m *Manager) JobScratchDir(jobID string) (string, error) {
	root := filepath.Join(m.base, "jobs", jobID)
	for _, sub := range scratchSubdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return "", fmt.Errorf("failed to create scratch directory for job %s: %w", jobID, err)
		}
	}
	return root, nil
}

// SaveJobJSON writes an intermediate stage document into a job's scratch
// tree under the given category (audio, images, or scripts).
func (m *Manager) SaveJobJSON(doc any, jobID, category, filename string) (string, error) {
	if _, err := m.JobScratchDir(jobID); err != nil {
		return "", err
	}
	return m.SaveJSON(doc, filename, filepath.Join("jobs", jobID, category))
}

// CleanupScratch removes a job's scratch tree. The final artifact document
// lives outside the scratch tree and is never touched.
func (m *Manager) CleanupScratch(jobID string) {
	root := filepath.Join(m.base, "jobs", jobID)
	if err := os.RemoveAll(root); err != nil {
		fmt.Printf("Failed to clean up scratch files for job %s: %v\n", jobID, err)
		return
	}
	fmt.Printf("Cleaned up scratch files for job %s\n", jobID)
}

// CheckpointStore persists batch checkpoints into one job's scratch tree.
type CheckpointStore struct {
	m     *Manager
	jobID string
}

// CheckpointStore returns a per-job checkpoint sink.
func (m *Manager) CheckpointStore(jobID string) *CheckpointStore {
	return &CheckpointStore{m: m, jobID: jobID}
}

// SaveCheckpoint writes one batch group's progress record.
func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, checkpoint *types.BatchCheckpoint) error {
	filename := fmt.Sprintf("image_batch_%d_of_%d_%s.json",
		checkpoint.GroupIndex, checkpoint.TotalGroups, time.Now().UTC().Format("20060102_150405"))
	_, err := s.m.SaveJobJSON(checkpoint, s.jobID, "images", filename)
	return err
}
