// Package types provides type definitions for structured data used throughout the storyforge system.
package types

import (
	"strings"
	"time"
)

// ArtifactVersion is the document format version written into every artifact.
const ArtifactVersion = "1.0.0"

// Metadata holds descriptive information about a generated artifact.
type Metadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topic       string    `json:"topic"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     string    `json:"version"`
	Error       bool      `json:"error,omitempty"`
}

// AudioSection describes the narrated audio attached to an artifact.
type AudioSection struct {
	URL             string   `json:"url"`
	AllURLs         []string `json:"all_urls,omitempty"`
	NumChunks       int      `json:"num_chunks,omitempty"`
	SourceWordCount int      `json:"source_word_count,omitempty"`
	Duration        float64  `json:"duration"`
}

// ScriptSection holds the narration script attached to an artifact.
type ScriptSection struct {
	FullText  string `json:"full_text"`
	WordCount int    `json:"word_count"`
}

// Segment is one time-aligned slice of the narration. The ordinal is assigned
// once by the transcription stage and never changes; later stages only attach
// fields to it.
type Segment struct {
	Ordinal     int     `json:"id"`
	Text        string  `json:"text"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"`
	WordCount   int     `json:"words"`
	Confidence  float64 `json:"confidence,omitempty"`
	ImagePrompt string  `json:"image_prompt,omitempty"`
	ImageURL    *string `json:"image_url"`
	DepthMapURL *string `json:"depth_map_url"`
}

// Artifact is the accumulating output document for one job. It is owned by
// the orchestrator while the job runs and becomes immutable once the job
// reaches a terminal state.
type Artifact struct {
	Metadata       Metadata       `json:"metadata"`
	Audio          AudioSection   `json:"audio"`
	Script         ScriptSection  `json:"script"`
	Segments       []Segment      `json:"segments"`
	DegradedStages []StageFailure `json:"degraded_stages,omitempty"`
	ErrorInfo      map[string]any `json:"error_info,omitempty"`
}

// StageFailure records a non-fatal stage error on the artifact so that a
// completed-with-degraded-assets job is distinguishable from a clean one.
type StageFailure struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// ParsedInput is the result of splitting the combined input prompt into a
// topic and an optional style directive.
type ParsedInput struct {
	Topic          string `json:"topic"`
	StyleDirective string `json:"style_directive,omitempty"`
}

// StyleConfig is the structured form of a natural-language style directive.
type StyleConfig struct {
	VideoStyle  VideoStyle  `json:"video_style"`
	VisualStyle VisualStyle `json:"visual_style"`
	AudioStyle  AudioStyle  `json:"audio_style"`
}

// VideoStyle captures pacing and genre preferences.
type VideoStyle struct {
	Genre      string `json:"genre,omitempty"`
	Pace       string `json:"pace,omitempty"`
	IntroStyle string `json:"intro_style,omitempty"`
}

// VisualStyle captures art direction preferences for generated imagery.
type VisualStyle struct {
	ArtStyle     string `json:"art_style,omitempty"`
	ColorPalette string `json:"color_palette,omitempty"`
	Lighting     string `json:"lighting,omitempty"`
	Composition  string `json:"composition,omitempty"`
}

// AudioStyle captures narration and music preferences.
type AudioStyle struct {
	VoiceTone    string `json:"voice_tone,omitempty"`
	MusicStyle   string `json:"music_style,omitempty"`
	SoundEffects string `json:"sound_effects,omitempty"`
}

// TopicAnalysis is the script writer's classification of the requested topic.
type TopicAnalysis struct {
	TopicType     string   `json:"type"`
	Tone          string   `json:"tone"`
	StyleKeywords []string `json:"styles,omitempty"`
}

// ScriptData is the output of the script generation stage.
type ScriptData struct {
	FullScript  string        `json:"full_script"`
	Topic       string        `json:"topic"`
	WordCount   int           `json:"length_words"`
	Analysis    TopicAnalysis `json:"analysis"`
	Model       string        `json:"model,omitempty"`
	GeneratedAt time.Time     `json:"timestamp"`
}

// AudioInfo is the output of the speech synthesis stage.
type AudioInfo struct {
	URL         string    `json:"url"`
	AllURLs     []string  `json:"all_urls"`
	Chunks      int       `json:"chunks"`
	WordCount   int       `json:"word_count"`
	GeneratedAt time.Time `json:"timestamp"`
}

// Transcription is the output of the transcription stage. Segment ordinals
// form a contiguous 0..N-1 range in slice order.
type Transcription struct {
	Segments    []Segment `json:"segments"`
	Duration    float64   `json:"duration"`
	WordCount   int       `json:"word_count"`
	GeneratedAt time.Time `json:"timestamp"`
}

// PromptData is the output of the illustration-prompt stage: the transcription
// segments with ImagePrompt populated.
type PromptData struct {
	Segments       []Segment `json:"segments"`
	Count          int       `json:"count"`
	BatchGenerated bool      `json:"batch_generated"`
	Error          string    `json:"error,omitempty"`
	GeneratedAt    time.Time `json:"timestamp"`
}

// ImageResult is the output of one image generation task. URLs are nil when
// generation (or the depth-map derivation) did not produce a usable asset.
type ImageResult struct {
	ImageURL    *string `json:"image_url"`
	DepthMapURL *string `json:"depth_map_url"`
}

// TaskOutcome is the recorded result of one batch task, success or failure.
type TaskOutcome struct {
	Result *ImageResult `json:"result"`
	Error  string       `json:"error,omitempty"`
}

// BatchCheckpoint is the progress record persisted after each completed batch
// group so an operator can inspect or manually resume a batch.
type BatchCheckpoint struct {
	GroupIndex  int                    `json:"group_index"`
	TotalGroups int                    `json:"total_groups"`
	Outcomes    map[string]TaskOutcome `json:"outcomes"`
	SuccessRate string                 `json:"success_rate"`
	Concurrency int                    `json:"concurrency"`
	Timestamp   time.Time              `json:"timestamp"`
}

// FallbackImagePrompt builds the degraded per-segment prompt used when the
// illustration-prompt stage fails or skips a segment.
func FallbackImagePrompt(text string) string {
	text = strings.TrimSpace(text)
	// Truncate on runes so a multi-byte character at the boundary is not split.
	if runes := []rune(text); len(runes) > 100 {
		text = string(runes[:100])
	}
	return "Visual representation of: " + text + "..."
}
