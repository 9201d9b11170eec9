// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags or environment variables.
type Config struct {
	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL (optional persistence)
	DataDir     string `json:"data_dir,omitempty"`     // Base directory for artifact documents and scratch assets
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information

	// Server
	Port            int `json:"port,omitempty"`              // HTTP listen port
	CleanupAgeHours int `json:"cleanup_age_hours,omitempty"` // Age after which terminal jobs are evicted from the index

	// Prompt parsing
	StyleSeparators []string `json:"style_separators,omitempty"` // Separator phrases for the heuristic topic/style split

	// Speech synthesis
	SpeechEndpoint string `json:"speech_endpoint,omitempty"`
	SpeechModel    string `json:"speech_model,omitempty"`
	SpeechAPIKey   string `json:"speech_api_key,omitempty"`
	SpeechMaxChars int    `json:"speech_max_chars,omitempty"` // Per-request character budget

	// Transcription
	TranscribeEndpoint string `json:"transcribe_endpoint,omitempty"`
	TranscribeModel    string `json:"transcribe_model,omitempty"`
	TranscribeAPIKey   string `json:"transcribe_api_key,omitempty"`

	// Image generation
	ImageEndpoint      string `json:"image_endpoint,omitempty"`
	ImageModel         string `json:"image_model,omitempty"`
	ImageAPIKey        string `json:"image_api_key,omitempty"`
	ImageDepthEndpoint string `json:"image_depth_endpoint,omitempty"` // Optional depth map provider

	// Batch execution
	BatchGroupSize     int `json:"batch_group_size,omitempty"`
	BatchMinWorkers    int `json:"batch_min_workers,omitempty"`
	BatchMaxWorkers    int `json:"batch_max_workers,omitempty"`
	BatchInitWorkers   int `json:"batch_init_workers,omitempty"`
	BatchRatePerMinute int `json:"batch_rate_per_minute,omitempty"` // 0 disables the steady rate cap
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		DataDir:            "assets",
		Port:               8080,
		CleanupAgeHours:    24,
		StyleSeparators:    []string{" in ", " with "},
		SpeechEndpoint:     "https://api.deepgram.com/v1/speak",
		SpeechModel:        "aura-asteria-en",
		TranscribeEndpoint: "https://api.deepgram.com/v1/listen",
		SpeechMaxChars:     4000,
		TranscribeModel:    "nova-3",
		ImageModel:         "flux_1_schnell",
		BatchGroupSize:     20,
		BatchMinWorkers:    2,
		BatchMaxWorkers:    20,
		BatchInitWorkers:   15,
		BatchRatePerMinute: 0,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: required fields are checked after merging, since flags and env vars
// can still fill them in.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid TCP port")
	}
	if c.CleanupAgeHours < 0 {
		return fmt.Errorf("config error: 'cleanup_age_hours' must be non-negative")
	}
	if c.SpeechMaxChars < 0 {
		return fmt.Errorf("config error: 'speech_max_chars' must be non-negative")
	}
	if c.BatchGroupSize < 0 {
		return fmt.Errorf("config error: 'batch_group_size' must be non-negative")
	}
	if c.BatchMinWorkers < 0 || c.BatchMaxWorkers < 0 {
		return fmt.Errorf("config error: batch worker bounds must be non-negative")
	}
	if c.BatchMinWorkers > 0 && c.BatchMaxWorkers > 0 && c.BatchMinWorkers > c.BatchMaxWorkers {
		return fmt.Errorf("config error: 'batch_min_workers' must not exceed 'batch_max_workers'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.SpeechEndpoint == "" {
		result.SpeechEndpoint = defaults.SpeechEndpoint
	}
	if result.SpeechModel == "" {
		result.SpeechModel = defaults.SpeechModel
	}
	if result.SpeechAPIKey == "" {
		result.SpeechAPIKey = defaults.SpeechAPIKey
	}
	if result.TranscribeEndpoint == "" {
		result.TranscribeEndpoint = defaults.TranscribeEndpoint
	}
	if result.TranscribeModel == "" {
		result.TranscribeModel = defaults.TranscribeModel
	}
	if result.TranscribeAPIKey == "" {
		result.TranscribeAPIKey = defaults.TranscribeAPIKey
	}
	if result.ImageEndpoint == "" {
		result.ImageEndpoint = defaults.ImageEndpoint
	}
	if result.ImageModel == "" {
		result.ImageModel = defaults.ImageModel
	}
	if result.ImageAPIKey == "" {
		result.ImageAPIKey = defaults.ImageAPIKey
	}
	if result.ImageDepthEndpoint == "" {
		result.ImageDepthEndpoint = defaults.ImageDepthEndpoint
	}

	// Slice fields: use default if unset
	if len(result.StyleSeparators) == 0 {
		result.StyleSeparators = defaults.StyleSeparators
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.CleanupAgeHours == 0 {
		result.CleanupAgeHours = defaults.CleanupAgeHours
	}
	if result.SpeechMaxChars == 0 {
		result.SpeechMaxChars = defaults.SpeechMaxChars
	}
	if result.BatchGroupSize == 0 {
		result.BatchGroupSize = defaults.BatchGroupSize
	}
	if result.BatchMinWorkers == 0 {
		result.BatchMinWorkers = defaults.BatchMinWorkers
	}
	if result.BatchMaxWorkers == 0 {
		result.BatchMaxWorkers = defaults.BatchMaxWorkers
	}
	if result.BatchInitWorkers == 0 {
		result.BatchInitWorkers = defaults.BatchInitWorkers
	}
	if result.BatchRatePerMinute == 0 {
		result.BatchRatePerMinute = defaults.BatchRatePerMinute
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
