package promptparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicSplit(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTopic string
		wantStyle string
	}{
		{
			name:      "split on in",
			input:     "A tutorial about Python programming in educational style",
			wantTopic: "A tutorial about Python programming",
			wantStyle: "educational style",
		},
		{
			name:      "split on with",
			input:     "The history of jazz with a moody noir aesthetic",
			wantTopic: "The history of jazz",
			wantStyle: "a moody noir aesthetic",
		},
		{
			name:      "last occurrence wins",
			input:     "Life in Tokyo in watercolor style",
			wantTopic: "Life in Tokyo",
			wantStyle: "watercolor style",
		},
		{
			name:      "no separator",
			input:     "Quantum computing explained",
			wantTopic: "Quantum computing explained",
			wantStyle: "",
		},
		{
			name:      "separator at the very start yields no split",
			input:     " in medias res",
			wantTopic: "in medias res",
			wantStyle: "",
		},
		{
			name:      "surrounding whitespace trimmed",
			input:     "  Ocean currents in documentary style  ",
			wantTopic: "Ocean currents",
			wantStyle: "documentary style",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := HeuristicSplit(tt.input, nil)
			assert.Equal(t, tt.wantTopic, parsed.Topic)
			assert.Equal(t, tt.wantStyle, parsed.StyleDirective)
		})
	}
}

func TestHeuristicSplitCustomSeparators(t *testing.T) {
	parsed := HeuristicSplit("Volcano eruptions rendered as pixel art", []string{" rendered as "})
	assert.Equal(t, "Volcano eruptions", parsed.Topic)
	assert.Equal(t, "pixel art", parsed.StyleDirective)
}
