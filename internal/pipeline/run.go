// Package pipeline provides the high-level orchestration for the video asset
// generation process.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/storyforge/internal/artifact"
	"github.com/jonathan/storyforge/internal/batch"
	"github.com/jonathan/storyforge/internal/correlate"
	"github.com/jonathan/storyforge/internal/db"
	"github.com/jonathan/storyforge/internal/observability"
	"github.com/jonathan/storyforge/internal/promptparse"
	"github.com/jonathan/storyforge/internal/storage"
	"github.com/jonathan/storyforge/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	JobID    string `json:"job_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Stage names recorded on the artifact when a degradable stage fails.
const (
	StageInputParse   = "input_parse"
	StageStyle        = "style"
	StageScript       = "script"
	StageSpeech       = "speech"
	StageTranscribe   = "transcription"
	StageImagePrompts = "image_prompts"
	StageImages       = "images"
)

// Runner orchestrates the fixed stage sequence for one job. Collaborators are
// injected so each can be replaced in tests; the stage order and failure
// policy live here.
type Runner struct {
	Parser      PromptParser
	Styles      StyleParser
	Scripts     ScriptWriter
	Speech      SpeechSynthesizer
	Transcriber Transcriber
	Prompts     PromptGenerator
	Images      ImageGenerator

	Store    *storage.Manager
	Database *db.DB
	Batch    batch.Config

	Separators []string
	Verbose    bool
	OnProgress ProgressCallback
}

// emitProgress calls the progress callback if configured
func (r *Runner) emitProgress(jobID, step, category, message string, content any) {
	if r.OnProgress != nil {
		r.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			JobID:    jobID,
			Content:  content,
		})
	}
}

// Run executes the full stage sequence for one job and returns the final
// artifact and its storage path. Fatal stage errors come back as an error
// after a minimal artifact has been persisted; Run never panics outward.
func (r *Runner) Run(ctx context.Context, jobID, inputPrompt string) (result *types.Artifact, artifactPath string, err error) {
	printer := observability.NewPrinter(os.Stdout)
	acc := artifact.NewAccumulator(r.Store)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
			result = nil
			artifactPath = ""
			r.finishFailed(ctx, acc, jobID, "panic", err)
		}
	}()

	if strings.TrimSpace(inputPrompt) == "" {
		err = fmt.Errorf("input prompt is empty")
		r.finishFailed(ctx, acc, jobID, StageInputParse, err)
		return nil, "", err
	}

	dbJobID := r.createDBJob(ctx, jobID, inputPrompt)

	// Step 1: Parse the combined prompt into topic and style directive
	fmt.Printf("Step 1/8: Parsing input prompt...\n")
	parsed := r.parseInput(ctx, acc, inputPrompt)
	r.emitProgress(jobID, db.StepParsedInput, db.CategoryParsing,
		fmt.Sprintf("Parsed topic: %s", parsed.Topic), parsed)
	r.saveDBArtifact(ctx, dbJobID, db.StepParsedInput, db.CategoryParsing, parsed)

	// Step 2: Optional structured style config
	fmt.Printf("Step 2/8: Parsing style directive...\n")
	style := r.parseStyle(ctx, acc, parsed.StyleDirective)
	if style != nil {
		r.saveDBArtifact(ctx, dbJobID, db.StepStyleConfig, db.CategoryParsing, style)
	}

	// Step 3: Script generation (fatal on error)
	fmt.Printf("Step 3/8: Generating script...\n")
	script, scriptErr := r.Scripts.GenerateScript(ctx, parsed.Topic, style)
	if scriptErr != nil {
		err = fmt.Errorf("script generation failed: %w", scriptErr)
		r.finishFailed(ctx, acc, jobID, StageScript, err)
		r.completeDBJob(ctx, dbJobID, "failed")
		return nil, "", err
	}
	acc.UpdateMetadata(script.Topic, fmt.Sprintf("Short video about %s", script.Topic), script.Topic)
	acc.UpdateScript(script)
	r.emitProgress(jobID, db.StepScript, db.CategoryScript,
		fmt.Sprintf("Generated script with %d words", script.WordCount), nil)
	r.saveDBArtifact(ctx, dbJobID, db.StepScript, db.CategoryScript, script)

	// Step 4: Speech synthesis (fatal on error)
	fmt.Printf("Step 4/8: Synthesizing speech...\n")
	audio, audioErr := r.Speech.Synthesize(ctx, script.FullScript)
	if audioErr != nil {
		err = fmt.Errorf("speech synthesis failed: %w", audioErr)
		r.finishFailed(ctx, acc, jobID, StageSpeech, err)
		r.completeDBJob(ctx, dbJobID, "failed")
		return nil, "", err
	}
	acc.UpdateAudio(audio)
	r.emitProgress(jobID, db.StepAudio, db.CategoryAudio,
		fmt.Sprintf("Synthesized %d audio chunk(s)", audio.Chunks), nil)
	r.saveDBArtifact(ctx, dbJobID, db.StepAudio, db.CategoryAudio, audio)

	// Step 5: Transcription (fatal on error)
	fmt.Printf("Step 5/8: Transcribing audio...\n")
	transcription, trErr := r.Transcriber.ProcessAudio(ctx, audio)
	if trErr != nil {
		err = fmt.Errorf("transcription failed: %w", trErr)
		r.finishFailed(ctx, acc, jobID, StageTranscribe, err)
		r.completeDBJob(ctx, dbJobID, "failed")
		return nil, "", err
	}
	r.emitProgress(jobID, db.StepTranscription, db.CategoryAudio,
		fmt.Sprintf("Transcribed %d segments", len(transcription.Segments)), nil)
	r.saveDBArtifact(ctx, dbJobID, db.StepTranscription, db.CategoryAudio, transcription)

	// Step 6: Illustration prompts (non-fatal; fallback prompts substitute)
	fmt.Printf("Step 6/8: Generating illustration prompts...\n")
	promptData, promptErr := r.Prompts.GeneratePrompts(ctx, transcription, parsed.Topic, style)
	if promptErr != nil {
		fmt.Printf("Warning: prompt generation degraded, using fallback prompts: %v\n", promptErr)
		acc.RecordDegraded(StageImagePrompts, promptErr)
	}
	if promptData == nil {
		// A generator that returns no data at all still degrades, not fails.
		promptData = fallbackPromptData(transcription)
		if promptErr == nil {
			acc.RecordDegraded(StageImagePrompts, fmt.Errorf("prompt generator returned no data"))
		}
	}
	r.saveDBArtifact(ctx, dbJobID, db.StepImagePrompts, db.CategoryImages, promptData)

	// Step 7: Batch image generation (non-fatal; segments keep null images)
	fmt.Printf("Step 7/8: Generating images...\n")
	results := r.runImageBatch(ctx, jobID, dbJobID, promptData)
	if failed := countFailed(results); failed == len(results) && len(results) > 0 {
		acc.RecordDegraded(StageImages, fmt.Errorf("all %d image tasks failed", failed))
	}
	r.emitProgress(jobID, db.StepImageBatch, db.CategoryImages,
		fmt.Sprintf("Image batch finished: %d/%d succeeded", len(results)-countFailed(results), len(results)), nil)

	// Step 8: Final assembly
	fmt.Printf("Step 8/8: Assembling artifact...\n")
	acc.UpdateSegments(transcription, promptData, results)

	artifactPath, saveErr := acc.Save()
	if saveErr != nil {
		err = fmt.Errorf("artifact persistence failed: %w", saveErr)
		r.finishFailed(ctx, acc, jobID, "assembly", err)
		r.completeDBJob(ctx, dbJobID, "failed")
		return nil, "", err
	}

	if r.Verbose {
		printer.PrintArtifact(acc.Artifact())
	}

	r.saveDBArtifact(ctx, dbJobID, db.StepArtifact, db.CategoryOutput, acc.Artifact())
	r.completeDBJob(ctx, dbJobID, "completed")
	r.Store.CleanupScratch(jobID)

	fmt.Printf("Done! Artifact stored at %s\n", artifactPath)
	return acc.Artifact(), artifactPath, nil
}

// RunWithProgress runs the pipeline with a per-call progress callback,
// leaving the shared Runner untouched.
func (r *Runner) RunWithProgress(ctx context.Context, jobID, inputPrompt string, onProgress ProgressCallback) (*types.Artifact, string, error) {
	clone := *r
	clone.OnProgress = onProgress
	return clone.Run(ctx, jobID, inputPrompt)
}

// parseInput delegates to the LLM parser and falls back to the heuristic
// split when the parser is missing, errors, or returns an empty topic.
func (r *Runner) parseInput(ctx context.Context, acc *artifact.Accumulator, inputPrompt string) *types.ParsedInput {
	separators := r.Separators
	if len(separators) == 0 {
		separators = promptparse.DefaultSeparators
	}

	if r.Parser == nil {
		return promptparse.HeuristicSplit(inputPrompt, separators)
	}

	parsed, err := r.Parser.Parse(ctx, inputPrompt)
	if err != nil || parsed == nil || parsed.Topic == "" {
		if err != nil {
			fmt.Printf("Warning: prompt parsing degraded, using heuristic split: %v\n", err)
			acc.RecordDegraded(StageInputParse, err)
		}
		return promptparse.HeuristicSplit(inputPrompt, separators)
	}
	return parsed
}

// parseStyle is best-effort: a missing directive or a failed parse yields a
// nil style and the pipeline continues.
func (r *Runner) parseStyle(ctx context.Context, acc *artifact.Accumulator, directive string) *types.StyleConfig {
	if directive == "" || r.Styles == nil {
		return nil
	}

	style, err := r.Styles.Parse(ctx, directive)
	if err != nil {
		fmt.Printf("Warning: style parsing degraded, continuing without style: %v\n", err)
		acc.RecordDegraded(StageStyle, err)
		return nil
	}
	return style
}

// runImageBatch feeds the prompt segments through the adaptive batch
// executor. Keys carry both the ordinal and the content hash so correlation
// works even if the result container scrambles or rewrites them.
func (r *Runner) runImageBatch(ctx context.Context, jobID string, dbJobID uuid.UUID, promptData *types.PromptData) map[string]types.TaskOutcome {
	tasks := make([]batch.Task, 0, len(promptData.Segments))
	for _, seg := range promptData.Segments {
		tasks = append(tasks, batch.Task{
			Key:     correlate.Key(seg.Ordinal, seg.Text),
			Payload: seg.ImagePrompt,
		})
	}

	sink := &checkpointFanout{
		file: r.Store.CheckpointStore(jobID),
		db:   r.Database,
		job:  dbJobID,
	}
	executor := batch.NewExecutor(r.Batch, sink)

	generate := func(ctx context.Context, payload, key string) (*types.ImageResult, error) {
		return r.Images.GenerateOne(ctx, payload, key)
	}
	return executor.RunBatch(ctx, tasks, generate, r.Images.Healthy)
}

// finishFailed persists the minimal error artifact and purges scratch files.
// It must never itself fail.
func (r *Runner) finishFailed(ctx context.Context, acc *artifact.Accumulator, jobID, stage string, cause error) {
	acc.SaveMinimal(map[string]any{
		"stage": stage,
		"error": cause.Error(),
	})
	r.Store.CleanupScratch(jobID)
}

// createDBJob creates the database job row keyed by the pipeline job ID so
// persisted artifacts stay retrievable by it. Database failures warn and the
// pipeline continues with file persistence only.
func (r *Runner) createDBJob(ctx context.Context, jobID, inputPrompt string) uuid.UUID {
	if r.Database == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(jobID)
	if err != nil {
		id = uuid.New()
	}
	if err := r.Database.CreateJob(ctx, id, inputPrompt); err != nil {
		fmt.Printf("Warning: failed to create database job: %v\n", err)
		return uuid.Nil
	}
	return id
}

func (r *Runner) saveDBArtifact(ctx context.Context, dbJobID uuid.UUID, step, category string, content any) {
	if r.Database == nil || dbJobID == uuid.Nil {
		return
	}
	if err := r.Database.SaveArtifact(ctx, dbJobID, step, category, content); err != nil {
		fmt.Printf("Warning: failed to save %s artifact: %v\n", step, err)
	}
}

func (r *Runner) completeDBJob(ctx context.Context, dbJobID uuid.UUID, status string) {
	if r.Database == nil || dbJobID == uuid.Nil {
		return
	}
	if err := r.Database.CompleteJob(ctx, dbJobID, status); err != nil {
		fmt.Printf("Warning: failed to complete database job: %v\n", err)
	}
}

// fallbackPromptData builds a usable prompt set straight from the transcript
// when the generator produced nothing.
func fallbackPromptData(transcription *types.Transcription) *types.PromptData {
	segments := append([]types.Segment(nil), transcription.Segments...)
	for i := range segments {
		segments[i].ImagePrompt = types.FallbackImagePrompt(segments[i].Text)
	}
	return &types.PromptData{
		Segments:    segments,
		Count:       len(segments),
		Error:       "prompt generation produced no data",
		GeneratedAt: time.Now().UTC(),
	}
}

func countFailed(results map[string]types.TaskOutcome) int {
	failed := 0
	for _, outcome := range results {
		if outcome.Result == nil || outcome.Result.ImageURL == nil {
			failed++
		}
	}
	return failed
}

// checkpointFanout writes batch checkpoints to the file store and, when
// configured, mirrors them to the database.
type checkpointFanout struct {
	file *storage.CheckpointStore
	db   *db.DB
	job  uuid.UUID
}

func (f *checkpointFanout) SaveCheckpoint(ctx context.Context, checkpoint *types.BatchCheckpoint) error {
	if f.db != nil && f.job != uuid.Nil {
		if err := f.db.SaveCheckpoint(ctx, f.job, checkpoint); err != nil {
			fmt.Printf("Warning: failed to mirror checkpoint to database: %v\n", err)
		}
	}
	return f.file.SaveCheckpoint(ctx, checkpoint)
}
