package styleparse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/storyforge/internal/llm"
)

// fakeClient returns a canned response for every Generate call.
type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	return f.response, f.err
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func TestParse(t *testing.T) {
	t.Run("empty directive skips the LLM", func(t *testing.T) {
		p := NewParser(&fakeClient{err: errors.New("should not be called")})
		cfg, err := p.Parse(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "", cfg.VisualStyle.ArtStyle)
	})

	t.Run("valid response", func(t *testing.T) {
		p := NewParser(&fakeClient{response: `{
			"video_style": {"genre": "educational", "pace": "moderate"},
			"visual_style": {"art_style": "cartoon", "color_palette": "vibrant"},
			"audio_style": {"voice_tone": "friendly"}
		}`})
		cfg, err := p.Parse(context.Background(), "cartoon style")
		require.NoError(t, err)
		assert.Equal(t, "cartoon", cfg.VisualStyle.ArtStyle)
		assert.Equal(t, "vibrant", cfg.VisualStyle.ColorPalette)
		assert.Equal(t, "friendly", cfg.AudioStyle.VoiceTone)
	})

	t.Run("markdown wrapped response", func(t *testing.T) {
		p := NewParser(&fakeClient{response: "```json\n{\"video_style\": {}, \"visual_style\": {\"art_style\": \"noir\"}, \"audio_style\": {}}\n```"})
		cfg, err := p.Parse(context.Background(), "noir")
		require.NoError(t, err)
		assert.Equal(t, "noir", cfg.VisualStyle.ArtStyle)
	})

	t.Run("missing required section fails validation", func(t *testing.T) {
		p := NewParser(&fakeClient{response: `{"video_style": {}}`})
		_, err := p.Parse(context.Background(), "noir")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema")
	})

	t.Run("LLM error propagates", func(t *testing.T) {
		p := NewParser(&fakeClient{err: errors.New("quota exceeded")})
		_, err := p.Parse(context.Background(), "noir")
		require.Error(t, err)
	})
}
