package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/storyforge/internal/batch"
	"github.com/jonathan/storyforge/internal/config"
	"github.com/jonathan/storyforge/internal/db"
	"github.com/jonathan/storyforge/internal/imagegen"
	"github.com/jonathan/storyforge/internal/llm"
	"github.com/jonathan/storyforge/internal/pipeline"
	"github.com/jonathan/storyforge/internal/promptgen"
	"github.com/jonathan/storyforge/internal/promptparse"
	"github.com/jonathan/storyforge/internal/scriptwriter"
	"github.com/jonathan/storyforge/internal/speech"
	"github.com/jonathan/storyforge/internal/storage"
	"github.com/jonathan/storyforge/internal/styleparse"
	"github.com/jonathan/storyforge/internal/transcriber"
)

// applyEnvFallbacks fills credentials and endpoints from the environment when
// neither the config file nor a flag provided them.
func applyEnvFallbacks(cfg *config.Config) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.SpeechAPIKey == "" {
		cfg.SpeechAPIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if cfg.TranscribeAPIKey == "" {
		cfg.TranscribeAPIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if cfg.ImageAPIKey == "" {
		cfg.ImageAPIKey = os.Getenv("IMAGE_API_KEY")
	}
	if cfg.ImageEndpoint == "" {
		cfg.ImageEndpoint = os.Getenv("IMAGE_ENDPOINT")
	}
	if cfg.ImageDepthEndpoint == "" {
		cfg.ImageDepthEndpoint = os.Getenv("IMAGE_DEPTH_ENDPOINT")
	}
}

// buildRunner wires the provider clients and storage into a pipeline runner.
// The returned cleanup function releases the LLM client and database pool.
func buildRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, func(), error) {
	llmClient, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	store, err := storage.NewManager(cfg.DataDir, "")
	if err != nil {
		llmClient.Close()
		return nil, nil, err
	}

	// Database persistence is optional; a failed connection downgrades to
	// file-only artifacts.
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: database unavailable, continuing without persistence: %v\n", err)
			database = nil
		}
	}

	runner := &pipeline.Runner{
		Parser:  promptparse.NewParser(llmClient),
		Styles:  styleparse.NewParser(llmClient),
		Scripts: scriptwriter.NewWriter(llmClient),
		Speech: speech.NewSynthesizer(speech.Config{
			Endpoint:      cfg.SpeechEndpoint,
			Model:         cfg.SpeechModel,
			APIKey:        cfg.SpeechAPIKey,
			MaxChunkChars: cfg.SpeechMaxChars,
		}, store),
		Transcriber: transcriber.NewClient(transcriber.Config{
			Endpoint: cfg.TranscribeEndpoint,
			Model:    cfg.TranscribeModel,
			APIKey:   cfg.TranscribeAPIKey,
		}),
		Prompts: promptgen.NewGenerator(llmClient),
		Images: imagegen.NewClient(imagegen.Config{
			Endpoint:      cfg.ImageEndpoint,
			Model:         cfg.ImageModel,
			APIKey:        cfg.ImageAPIKey,
			DepthEndpoint: cfg.ImageDepthEndpoint,
		}, store),
		Store:    store,
		Database: database,
		Batch: batch.Config{
			GroupSize:      cfg.BatchGroupSize,
			MinWorkers:     cfg.BatchMinWorkers,
			MaxWorkers:     cfg.BatchMaxWorkers,
			InitialWorkers: cfg.BatchInitWorkers,
			RatePerSecond:  float64(cfg.BatchRatePerMinute) / 60.0,
		},
		Separators: cfg.StyleSeparators,
		Verbose:    cfg.Verbose,
	}

	cleanup := func() {
		_ = llmClient.Close()
		if database != nil {
			database.Close()
		}
	}
	return runner, cleanup, nil
}
