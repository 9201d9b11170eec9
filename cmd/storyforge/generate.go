package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/storyforge/internal/config"
	"github.com/spf13/cobra"
)

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Run the full video asset pipeline end-to-end",
	Long: `Orchestrates the entire generation process: prompt parsing -> style config -> script -> speech -> transcription -> image prompts -> image batch -> artifact assembly.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runGenerateCmd,
}

var (
	genConfigPath  string
	genPrompt      string
	genDataDir     string
	genAPIKey      string
	genDatabaseURL string
	genVerbose     bool
)

func init() {
	// Config file flag (processed first)
	generateCommand.Flags().StringVar(&genConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	generateCommand.Flags().StringVarP(&genPrompt, "prompt", "p", "", "Input prompt, e.g. \"The French Revolution in watercolor style\"")
	generateCommand.Flags().StringVar(&genDataDir, "data-dir", "", "Base directory for artifact documents and generated assets")
	generateCommand.Flags().StringVar(&genAPIKey, "api-key", "", "LLM API key (optional, defaults to GEMINI_API_KEY env var)")
	generateCommand.Flags().StringVar(&genDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	generateCommand.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print detailed progress information")

	rootCmd.AddCommand(generateCommand)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if genConfigPath != "" {
		loadedCfg, err := config.LoadConfig(genConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
		if genVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", genConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = genDataDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = genAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = genDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = genVerbose
	}

	// Step 3: Apply defaults and environment fallbacks
	cfg = cfg.MergeWithDefaults(config.Defaults())
	applyEnvFallbacks(&cfg)

	// Step 4: Validate required inputs
	if genPrompt == "" {
		return fmt.Errorf("--prompt is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 5: Build the pipeline and run it once
	runner, cleanup, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	jobID := uuid.NewString()
	_, artifactPath, err := runner.Run(ctx, jobID, genPrompt)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Printf("Artifact: %s\n", artifactPath)
	return nil
}
