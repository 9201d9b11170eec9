package types

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		request   GenerateRequest
		wantError bool
	}{
		{
			name:      "Valid prompt",
			request:   GenerateRequest{InputPrompt: "A tutorial about Python programming in educational style"},
			wantError: false,
		},
		{
			name:      "Empty prompt",
			request:   GenerateRequest{InputPrompt: ""},
			wantError: true,
		},
		{
			name:      "Prompt over length bound",
			request:   GenerateRequest{InputPrompt: strings.Repeat("x", MaxPromptLength+1)},
			wantError: true,
		},
		{
			name:      "Prompt at length bound",
			request:   GenerateRequest{InputPrompt: strings.Repeat("x", MaxPromptLength)},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
}

func TestFallbackImagePrompt(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := FallbackImagePrompt(long)
	assert.Equal(t, "Visual representation of: "+strings.Repeat("a", 100)+"...", got)

	short := FallbackImagePrompt("  a knight rides at dawn  ")
	assert.Equal(t, "Visual representation of: a knight rides at dawn...", short)

	// Truncation counts runes, so multi-byte text stays valid UTF-8.
	wide := strings.Repeat("é", 150)
	gotWide := FallbackImagePrompt(wide)
	assert.Equal(t, "Visual representation of: "+strings.Repeat("é", 100)+"...", gotWide)
	assert.True(t, utf8.ValidString(gotWide))
}
