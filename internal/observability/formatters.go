// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/storyforge/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScript outputs a human-readable summary of the generated script.
func (p *Printer) PrintScript(script *types.ScriptData) {
	if script == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic:  %s\n", script.Topic))
	sb.WriteString(fmt.Sprintf("Words:  %d\n", script.WordCount))
	if script.Analysis.TopicType != "" {
		sb.WriteString(fmt.Sprintf("Type:   %s\n", script.Analysis.TopicType))
	}
	if script.Analysis.Tone != "" {
		sb.WriteString(fmt.Sprintf("Tone:   %s\n", script.Analysis.Tone))
	}
	if script.Model != "" {
		sb.WriteString(fmt.Sprintf("Model:  %s\n", script.Model))
	}
	sb.WriteString("\n")

	preview := script.FullScript
	if len(preview) > 150 {
		preview = preview[:147] + "..."
	}
	sb.WriteString(preview)

	p.printBox("GENERATED SCRIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSegments outputs a summary of the segment list.
func (p *Printer) PrintSegments(segments []types.Segment) {
	if len(segments) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(segments), maxItemsToShow)
	for i := 0; i < count; i++ {
		seg := segments[i]
		status := "no image"
		if seg.ImageURL != nil {
			status = "image"
			if seg.DepthMapURL != nil {
				status = "image+depth"
			}
		}
		text := seg.Text
		if len(text) > 25 {
			text = text[:22] + "..."
		}
		sb.WriteString(fmt.Sprintf("%2d. [%5.1fs-%5.1fs] %-11s %s\n", seg.Ordinal, seg.StartTime, seg.EndTime, status, text))
	}
	if len(segments) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(segments)-maxItemsToShow))
	}

	p.printBox("SEGMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifact outputs a summary of the assembled artifact document.
func (p *Printer) PrintArtifact(artifact *types.Artifact) {
	if artifact == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:     %s\n", artifact.Metadata.Title))
	sb.WriteString(fmt.Sprintf("Topic:     %s\n", artifact.Metadata.Topic))
	sb.WriteString(fmt.Sprintf("Segments:  %d\n", len(artifact.Segments)))
	sb.WriteString(fmt.Sprintf("Audio:     %d chunk(s), %.2fs\n", artifact.Audio.NumChunks, artifact.Audio.Duration))
	sb.WriteString(fmt.Sprintf("Words:     %d\n", artifact.Script.WordCount))

	withImages := 0
	for _, seg := range artifact.Segments {
		if seg.ImageURL != nil {
			withImages++
		}
	}
	sb.WriteString(fmt.Sprintf("Images:    %d/%d\n", withImages, len(artifact.Segments)))

	if len(artifact.DegradedStages) > 0 {
		sb.WriteString("\nDegraded stages:\n")
		for _, failure := range artifact.DegradedStages {
			msg := failure.Error
			if len(msg) > 40 {
				msg = msg[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", failure.Stage, msg))
		}
	}

	p.printBox("ARTIFACT SUMMARY", strings.TrimSuffix(sb.String(), "\n"))

	p.PrintSegments(artifact.Segments)
}
