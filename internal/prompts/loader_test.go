package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStageTemplates(t *testing.T) {
	// Every stage template the generation pipeline loads at construction.
	tests := []struct {
		file string
		key  string
	}{
		{file: "promptparse.json", key: "parse-input-prompt"},
		{file: "styleparse.json", key: "parse-style-config"},
		{file: "scriptwriter.json", key: "system-full-script"},
		{file: "promptgen.json", key: "system-art-director"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			template, err := Get(tt.file, tt.key)
			require.NoError(t, err)
			assert.NotEmpty(t, template)
		})
	}
}

func TestGetUnknownFile(t *testing.T) {
	_, err := Get("nope.json", "anything")
	assert.ErrorContains(t, err, "not found")
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("scriptwriter.json", "no-such-key")
	assert.ErrorContains(t, err, "no-such-key")
}

func TestMustGetPanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("scriptwriter.json", "no-such-key")
	})
}

func TestFormat(t *testing.T) {
	got := Format("Write a script about {{.Topic}} in {{.Tone}} tone.", map[string]string{
		"Topic": "volcanoes",
		"Tone":  "casual",
	})
	assert.Equal(t, "Write a script about volcanoes in casual tone.", got)
}

func TestFormatLeavesUnknownPlaceholders(t *testing.T) {
	got := Format("Topic: {{.Topic}}, Style: {{.Style}}", map[string]string{"Topic": "volcanoes"})
	assert.Equal(t, "Topic: volcanoes, Style: {{.Style}}", got)
}

func TestFormatEmptyData(t *testing.T) {
	assert.Equal(t, "no placeholders here", Format("no placeholders here", nil))
}
