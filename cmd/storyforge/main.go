// Package main provides the entry point for the Storyforge CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyforge",
	Short: "Storyforge video asset generator",
	Long:  "Storyforge turns a one-line prompt into a complete set of short-video assets: a narrated script, synthesized speech, a word-timed transcript, and an illustration per transcript segment, assembled into a single artifact document.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
