package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/storyforge/internal/config"
	"github.com/jonathan/storyforge/internal/jobs"
	"github.com/jonathan/storyforge/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting generation jobs and retrieving their artifacts.`,
	RunE:  runServe,
}

var (
	serveConfigPath string
	servePort       int
	serveDataDir    string
	serveVerbose    bool
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Base directory for artifact documents and generated assets")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed progress information")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	var cfg config.Config
	if serveConfigPath != "" {
		loadedCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = serveDataDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = serveVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	applyEnvFallbacks(&cfg)

	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key config value is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runner, cleanup, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	serverCfg := server.Config{
		Port:         cfg.Port,
		JobRetention: time.Duration(cfg.CleanupAgeHours) * time.Hour,
	}
	// Evicted jobs stay queryable through the database archive.
	if runner.Database != nil {
		serverCfg.Archive = runner.Database
	}

	srv := server.New(serverCfg, jobs.NewMemoryStore(), runner)

	return srv.Start()
}
