package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Valid config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		content := `{
			"api_key": "test-key",
			"data_dir": "/tmp/storyforge",
			"port": 9090,
			"batch_init_workers": 5
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "test-key", cfg.APIKey)
		assert.Equal(t, "/tmp/storyforge", cfg.DataDir)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 5, cfg.BatchInitWorkers)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("Empty path", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
	}{
		{name: "Defaults are valid", cfg: Defaults(), wantError: false},
		{name: "Negative port", cfg: Config{Port: -1}, wantError: true},
		{name: "Port too large", cfg: Config{Port: 70000}, wantError: true},
		{name: "Min workers above max", cfg: Config{BatchMinWorkers: 10, BatchMaxWorkers: 5}, wantError: true},
		{name: "Negative cleanup age", cfg: Config{CleanupAgeHours: -1}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()

	t.Run("Empty config takes all defaults", func(t *testing.T) {
		cfg := Config{}
		merged := cfg.MergeWithDefaults(defaults)
		assert.Equal(t, defaults.DataDir, merged.DataDir)
		assert.Equal(t, defaults.Port, merged.Port)
		assert.Equal(t, defaults.BatchGroupSize, merged.BatchGroupSize)
		assert.Equal(t, defaults.StyleSeparators, merged.StyleSeparators)
	})

	t.Run("Set fields win over defaults", func(t *testing.T) {
		cfg := Config{
			DataDir:          "custom",
			Port:             9000,
			BatchInitWorkers: 3,
			StyleSeparators:  []string{" as "},
		}
		merged := cfg.MergeWithDefaults(defaults)
		assert.Equal(t, "custom", merged.DataDir)
		assert.Equal(t, 9000, merged.Port)
		assert.Equal(t, 3, merged.BatchInitWorkers)
		assert.Equal(t, []string{" as "}, merged.StyleSeparators)
		// Untouched fields still default
		assert.Equal(t, defaults.SpeechMaxChars, merged.SpeechMaxChars)
	})
}
