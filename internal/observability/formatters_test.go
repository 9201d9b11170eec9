package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/storyforge/internal/types"
)

func TestPrintScript(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	script := &types.ScriptData{
		FullScript: "Volcanoes are powerful natural phenomena.",
		Topic:      "Volcanoes",
		WordCount:  5,
		Analysis: types.TopicAnalysis{
			TopicType: "educational",
			Tone:      "serious",
		},
	}

	p.PrintScript(script)
	output := buf.String()

	assert.Contains(t, output, "GENERATED SCRIPT")
	assert.Contains(t, output, "Volcanoes")
	assert.Contains(t, output, "educational")
	assert.Contains(t, output, "serious")
}

func TestPrintScriptNil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintScript(nil)
	assert.Empty(t, buf.String())
}

func TestPrintArtifact(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	url := "https://cdn/image_0.png"
	artifact := &types.Artifact{
		Metadata: types.Metadata{
			Title: "Volcanoes",
			Topic: "Volcanoes",
		},
		Audio: types.AudioSection{NumChunks: 2, Duration: 42.5},
		Segments: []types.Segment{
			{Ordinal: 0, Text: "First segment", StartTime: 0, EndTime: 2, ImageURL: &url},
			{Ordinal: 1, Text: "Second segment", StartTime: 2, EndTime: 4},
		},
		DegradedStages: []types.StageFailure{
			{Stage: "images", Error: "provider unavailable"},
		},
	}

	p.PrintArtifact(artifact)
	output := buf.String()

	assert.Contains(t, output, "ARTIFACT SUMMARY")
	assert.Contains(t, output, "Volcanoes")
	assert.Contains(t, output, "Images:    1/2")
	assert.Contains(t, output, "images: provider unavailable")
	assert.Contains(t, output, "SEGMENTS")
	assert.Contains(t, output, "no image")
}

func TestPrintSegmentsTruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	segments := make([]types.Segment, 8)
	for i := range segments {
		segments[i] = types.Segment{Ordinal: i, Text: "segment text"}
	}

	p.PrintSegments(segments)
	assert.Contains(t, buf.String(), "and 3 more")
}
