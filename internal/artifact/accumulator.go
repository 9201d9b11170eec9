// Package artifact owns the accumulating output document for one job. Every
// pipeline stage calls exactly one update method; each update re-stamps the
// modification time and persists the document immediately so partial progress
// of a still-running job is inspectable on disk.
package artifact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/storyforge/internal/correlate"
	"github.com/jonathan/storyforge/internal/types"
)

// Saver persists artifact documents. Implemented by storage.Manager.
type Saver interface {
	SaveJSON(doc any, filename, subdir string) (string, error)
}

// Accumulator builds one job's artifact stage by stage.
type Accumulator struct {
	saver    Saver
	uniqueID string
	artifact *types.Artifact
}

// NewAccumulator creates an Accumulator with a fresh document and unique
// filename.
func NewAccumulator(saver Saver) *Accumulator {
	now := time.Now().UTC()
	return &Accumulator{
		saver:    saver,
		uniqueID: uuid.NewString(),
		artifact: &types.Artifact{
			Metadata: types.Metadata{
				CreatedAt: now,
				UpdatedAt: now,
				Version:   types.ArtifactVersion,
			},
			Segments: []types.Segment{},
		},
	}
}

// Filename returns the artifact document's filename.
func (a *Accumulator) Filename() string {
	return fmt.Sprintf("video_%s.json", a.uniqueID)
}

// errorFilename is used by SaveMinimal for the stripped-down error document.
func (a *Accumulator) errorFilename() string {
	return fmt.Sprintf("video_error_%s.json", a.uniqueID)
}

// Artifact returns the current document.
func (a *Accumulator) Artifact() *types.Artifact {
	return a.artifact
}

// UpdateMetadata sets the descriptive fields and auto-saves.
func (a *Accumulator) UpdateMetadata(title, description, topic string) {
	a.artifact.Metadata.Title = title
	a.artifact.Metadata.Description = description
	a.artifact.Metadata.Topic = topic
	a.touchAndSave()
}

// UpdateScript records the script stage output and auto-saves. The topic
// doubles as the default title.
func (a *Accumulator) UpdateScript(script *types.ScriptData) {
	a.artifact.Script.FullText = script.FullScript
	a.artifact.Script.WordCount = script.WordCount
	if script.Topic != "" {
		a.artifact.Metadata.Topic = script.Topic
		a.artifact.Metadata.Title = script.Topic
	}
	a.touchAndSave()
}

// UpdateAudio records the speech stage output and auto-saves.
func (a *Accumulator) UpdateAudio(audio *types.AudioInfo) {
	a.artifact.Audio.URL = audio.URL
	a.artifact.Audio.AllURLs = audio.AllURLs
	a.artifact.Audio.NumChunks = audio.Chunks
	a.artifact.Audio.SourceWordCount = audio.WordCount
	a.touchAndSave()
}

// UpdateSegments merges the transcription, prompt, and image outputs into the
// final segment list and auto-saves.
//
// Transcription and prompt segment counts are reconciled by truncating both
// to the shorter length before merging, so the final list never carries a
// prompt/transcript cardinality mismatch. Image results are attached through
// content-key correlation.
func (a *Accumulator) UpdateSegments(transcription *types.Transcription, promptData *types.PromptData, imageResults map[string]types.TaskOutcome) {
	a.artifact.Audio.Duration = transcription.Duration

	segments := append([]types.Segment(nil), transcription.Segments...)
	if promptData != nil {
		n := min(len(segments), len(promptData.Segments))
		if n != len(segments) || n != len(promptData.Segments) {
			fmt.Printf("Reconciling segment counts: transcript %d, prompts %d, keeping %d\n",
				len(segments), len(promptData.Segments), n)
		}
		segments = segments[:n]
		for i := range segments {
			segments[i].ImagePrompt = promptData.Segments[i].ImagePrompt
		}
	}

	for i := range segments {
		segments[i].Ordinal = i
		segments[i].Duration = segments[i].EndTime - segments[i].StartTime
	}

	if imageResults != nil {
		correlate.Attach(segments, imageResults)
	}

	a.artifact.Segments = segments
	a.touchAndSave()
}

// RecordDegraded notes a non-fatal stage failure on the document.
func (a *Accumulator) RecordDegraded(stage string, err error) {
	a.artifact.DegradedStages = append(a.artifact.DegradedStages, types.StageFailure{
		Stage: stage,
		Error: err.Error(),
	})
	a.touchAndSave()
}

// Save persists the document and returns its path.
func (a *Accumulator) Save() (string, error) {
	return a.saver.SaveJSON(a.artifact, a.Filename(), "")
}

// SaveMinimal writes a stripped-down error document. It never fails: a
// persistence error is logged and the path comes back empty.
func (a *Accumulator) SaveMinimal(errorInfo map[string]any) string {
	now := time.Now().UTC()
	minimal := &types.Artifact{
		Metadata: types.Metadata{
			Title:     "Error in video generation",
			Topic:     a.artifact.Metadata.Topic,
			CreatedAt: now,
			UpdatedAt: now,
			Version:   types.ArtifactVersion,
			Error:     true,
		},
		Segments:  []types.Segment{},
		ErrorInfo: errorInfo,
	}

	path, err := a.saver.SaveJSON(minimal, a.errorFilename(), "")
	if err != nil {
		fmt.Printf("Failed to save minimal artifact %s: %v\n", a.errorFilename(), err)
		return ""
	}
	return path
}

// touchAndSave re-stamps the modification time and auto-saves. Auto-save
// failures are logged, not fatal.
func (a *Accumulator) touchAndSave() {
	a.artifact.Metadata.UpdatedAt = time.Now().UTC()
	if _, err := a.saver.SaveJSON(a.artifact, a.Filename(), ""); err != nil {
		fmt.Printf("Auto-save to %s failed: %v\n", a.Filename(), err)
	}
}
