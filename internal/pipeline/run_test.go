package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/storyforge/internal/batch"
	"github.com/jonathan/storyforge/internal/storage"
	"github.com/jonathan/storyforge/internal/types"
)

type fakeParser struct {
	parsed *types.ParsedInput
	err    error
}

func (f *fakeParser) Parse(ctx context.Context, inputPrompt string) (*types.ParsedInput, error) {
	return f.parsed, f.err
}

type fakeStyles struct {
	style *types.StyleConfig
	err   error
}

func (f *fakeStyles) Parse(ctx context.Context, directive string) (*types.StyleConfig, error) {
	return f.style, f.err
}

type fakeScripts struct {
	script    *types.ScriptData
	err       error
	gotTopic  string
	gotStyle  *types.StyleConfig
	panicking bool
}

func (f *fakeScripts) GenerateScript(ctx context.Context, topic string, style *types.StyleConfig) (*types.ScriptData, error) {
	if f.panicking {
		panic("script stage exploded")
	}
	f.gotTopic = topic
	f.gotStyle = style
	return f.script, f.err
}

type fakeSpeech struct {
	audio *types.AudioInfo
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) (*types.AudioInfo, error) {
	return f.audio, f.err
}

type fakeTranscriber struct {
	transcription *types.Transcription
	err           error
}

func (f *fakeTranscriber) ProcessAudio(ctx context.Context, audio *types.AudioInfo) (*types.Transcription, error) {
	return f.transcription, f.err
}

type fakePrompts struct {
	data    *types.PromptData
	nilData bool
	err     error
}

func (f *fakePrompts) GeneratePrompts(ctx context.Context, transcription *types.Transcription, topic string, style *types.StyleConfig) (*types.PromptData, error) {
	if f.nilData {
		return nil, f.err
	}
	if f.data == nil {
		// Mirror the generator's contract: PromptData is always usable.
		segments := append([]types.Segment(nil), transcription.Segments...)
		for i := range segments {
			if segments[i].ImagePrompt == "" {
				segments[i].ImagePrompt = "prompt for " + segments[i].Text
			}
		}
		return &types.PromptData{Segments: segments, Count: len(segments)}, f.err
	}
	return f.data, f.err
}

type fakeImages struct {
	healthErr error
	genErr    error
	calls     int
}

func (f *fakeImages) Healthy(ctx context.Context) error {
	return f.healthErr
}

func (f *fakeImages) GenerateOne(ctx context.Context, prompt, segmentID string) (*types.ImageResult, error) {
	f.calls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	url := fmt.Sprintf("https://cdn/%s.png", segmentID)
	return &types.ImageResult{ImageURL: &url}, nil
}

func testTranscription(texts ...string) *types.Transcription {
	segs := make([]types.Segment, len(texts))
	for i, text := range texts {
		segs[i] = types.Segment{
			Ordinal:   i,
			Text:      text,
			StartTime: float64(i) * 3,
			EndTime:   float64(i)*3 + 3,
		}
	}
	return &types.Transcription{Segments: segs, Duration: float64(len(texts)) * 3}
}

func newTestRunner(t *testing.T) (*Runner, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir(), "")
	require.NoError(t, err)

	runner := &Runner{
		Parser:      &fakeParser{parsed: &types.ParsedInput{Topic: "Volcanoes", StyleDirective: "documentary style"}},
		Styles:      &fakeStyles{style: &types.StyleConfig{}},
		Scripts:     &fakeScripts{script: &types.ScriptData{FullScript: "Volcanoes erupt.", Topic: "Volcanoes", WordCount: 2}},
		Speech:      &fakeSpeech{audio: &types.AudioInfo{URL: "https://cdn/a.mp3", AllURLs: []string{"https://cdn/a.mp3"}, Chunks: 1}},
		Transcriber: &fakeTranscriber{transcription: testTranscription("Volcanoes erupt.", "They shape the land.")},
		Prompts:     &fakePrompts{},
		Images:      &fakeImages{},
		Store:       store,
		Batch:       batch.Config{GroupSize: 5, MinWorkers: 1, MaxWorkers: 4, InitialWorkers: 2},
	}
	return runner, store
}

func TestRunHappyPath(t *testing.T) {
	runner, store := newTestRunner(t)

	artifact, path, err := runner.Run(context.Background(), "job-1", "A video about volcanoes in documentary style")
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.NotEmpty(t, path)

	require.Len(t, artifact.Segments, 2)
	for i, seg := range artifact.Segments {
		assert.Equal(t, i, seg.Ordinal)
		require.NotNil(t, seg.ImageURL, "segment %d should have an image", i)
		assert.NotEmpty(t, seg.ImagePrompt)
	}
	assert.Equal(t, "Volcanoes", artifact.Metadata.Topic)
	assert.Empty(t, artifact.DegradedStages)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	// Scratch files are purged once the artifact location is known.
	_, statErr = os.Stat(filepath.Join(store.Base(), "jobs", "job-1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunScriptFailureIsFatal(t *testing.T) {
	runner, store := newTestRunner(t)
	runner.Scripts = &fakeScripts{err: errors.New("model refused")}

	artifact, path, err := runner.Run(context.Background(), "job-2", "A video about volcanoes")
	require.Error(t, err)
	assert.Nil(t, artifact)
	assert.Empty(t, path)
	assert.Contains(t, err.Error(), "script generation failed")

	// The minimal error document is still persisted.
	matches, globErr := filepath.Glob(filepath.Join(store.Base(), "video_error_*.json"))
	require.NoError(t, globErr)
	assert.Len(t, matches, 1)
}

func TestRunSpeechFailureIsFatal(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Speech = &fakeSpeech{err: errors.New("tts down")}

	_, _, err := runner.Run(context.Background(), "job-3", "A video about volcanoes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech synthesis failed")
}

func TestRunTranscriptionFailureIsFatal(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Transcriber = &fakeTranscriber{err: errors.New("no utterances")}

	_, _, err := runner.Run(context.Background(), "job-4", "A video about volcanoes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription failed")
}

func TestRunParserFailureFallsBackToHeuristic(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Parser = &fakeParser{err: errors.New("llm unavailable")}
	scripts := &fakeScripts{script: &types.ScriptData{FullScript: "text", Topic: "A tutorial about Python programming", WordCount: 1}}
	runner.Scripts = scripts

	artifact, _, err := runner.Run(context.Background(), "job-5", "A tutorial about Python programming in educational style")
	require.NoError(t, err)

	assert.Equal(t, "A tutorial about Python programming", scripts.gotTopic)
	require.NotEmpty(t, artifact.DegradedStages)
	assert.Equal(t, StageInputParse, artifact.DegradedStages[0].Stage)
}

func TestRunStyleFailureDegrades(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Styles = &fakeStyles{err: errors.New("schema rejected")}
	scripts := &fakeScripts{script: &types.ScriptData{FullScript: "text", Topic: "Volcanoes", WordCount: 1}}
	runner.Scripts = scripts

	artifact, _, err := runner.Run(context.Background(), "job-6", "A video about volcanoes in documentary style")
	require.NoError(t, err)

	assert.Nil(t, scripts.gotStyle)
	require.Len(t, artifact.DegradedStages, 1)
	assert.Equal(t, StageStyle, artifact.DegradedStages[0].Stage)
}

func TestRunPromptFailureDegrades(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Prompts = &fakePrompts{err: errors.New("batch generation failed")}

	artifact, _, err := runner.Run(context.Background(), "job-7", "A video about volcanoes")
	require.NoError(t, err)

	require.Len(t, artifact.Segments, 2)
	for _, seg := range artifact.Segments {
		assert.NotEmpty(t, seg.ImagePrompt)
	}
	require.Len(t, artifact.DegradedStages, 1)
	assert.Equal(t, StageImagePrompts, artifact.DegradedStages[0].Stage)
}

func TestRunPromptReturnsNoDataDegrades(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Prompts = &fakePrompts{nilData: true, err: errors.New("batch generation failed")}

	artifact, path, err := runner.Run(context.Background(), "job-13", "A video about volcanoes")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	require.Len(t, artifact.Segments, 2)
	for _, seg := range artifact.Segments {
		assert.Contains(t, seg.ImagePrompt, "Visual representation of:")
	}
	require.Len(t, artifact.DegradedStages, 1)
	assert.Equal(t, StageImagePrompts, artifact.DegradedStages[0].Stage)
}

func TestRunImageProviderDownStillCompletes(t *testing.T) {
	runner, _ := newTestRunner(t)
	images := &fakeImages{healthErr: errors.New("connection refused")}
	runner.Images = images

	artifact, path, err := runner.Run(context.Background(), "job-8", "A video about volcanoes")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	assert.Zero(t, images.calls)
	require.Len(t, artifact.Segments, 2)
	for _, seg := range artifact.Segments {
		assert.Nil(t, seg.ImageURL)
		assert.Nil(t, seg.DepthMapURL)
	}

	degraded := make([]string, 0, len(artifact.DegradedStages))
	for _, failure := range artifact.DegradedStages {
		degraded = append(degraded, failure.Stage)
	}
	assert.Contains(t, degraded, StageImages)
}

func TestRunSegmentCountReconciliation(t *testing.T) {
	runner, _ := newTestRunner(t)
	runner.Transcriber = &fakeTranscriber{transcription: testTranscription("a", "b", "c", "d", "e")}
	prompts := testTranscription("a", "b", "c", "d", "e", "f", "g")
	for i := range prompts.Segments {
		prompts.Segments[i].ImagePrompt = "p"
	}
	runner.Prompts = &fakePrompts{data: &types.PromptData{Segments: prompts.Segments, Count: 7}}

	artifact, _, err := runner.Run(context.Background(), "job-9", "A video about volcanoes")
	require.NoError(t, err)

	require.Len(t, artifact.Segments, 5)
	for i, seg := range artifact.Segments {
		assert.Equal(t, i, seg.Ordinal)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	runner, store := newTestRunner(t)
	runner.Scripts = &fakeScripts{panicking: true}

	var artifact *types.Artifact
	var err error
	assert.NotPanics(t, func() {
		artifact, _, err = runner.Run(context.Background(), "job-10", "A video about volcanoes")
	})
	require.Error(t, err)
	assert.Nil(t, artifact)
	assert.Contains(t, err.Error(), "pipeline panicked")

	matches, _ := filepath.Glob(filepath.Join(store.Base(), "video_error_*.json"))
	assert.Len(t, matches, 1)
}

func TestRunEmptyPromptFails(t *testing.T) {
	runner, _ := newTestRunner(t)

	_, _, err := runner.Run(context.Background(), "job-11", "   ")
	require.Error(t, err)
}

func TestRunEmitsProgress(t *testing.T) {
	runner, _ := newTestRunner(t)

	var events []ProgressEvent
	runner.OnProgress = func(event ProgressEvent) {
		events = append(events, event)
	}

	_, _, err := runner.Run(context.Background(), "job-12", "A video about volcanoes")
	require.NoError(t, err)

	require.NotEmpty(t, events)
	steps := make([]string, 0, len(events))
	for _, event := range events {
		assert.Equal(t, "job-12", event.JobID)
		steps = append(steps, event.Step)
	}
	assert.Contains(t, steps, "parsed_input")
	assert.Contains(t, steps, "script")
	assert.Contains(t, steps, "transcription")
}
