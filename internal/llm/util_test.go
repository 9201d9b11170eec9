package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JSON wrapped in json fence",
			input:    "```json\n{\"topic\": \"cats\"}\n```",
			expected: `{"topic": "cats"}`,
		},
		{
			name:     "JSON wrapped in bare fence",
			input:    "```\n{\"topic\": \"cats\"}\n```",
			expected: `{"topic": "cats"}`,
		},
		{
			name:     "Plain JSON untouched",
			input:    `{"topic": "cats"}`,
			expected: `{"topic": "cats"}`,
		},
		{
			name:     "Surrounding whitespace trimmed",
			input:    "  \n{\"a\": 1}\n ",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
