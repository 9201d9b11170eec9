package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/storyforge/internal/db"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent generation jobs from the database",
	Long:  `List generation jobs persisted in PostgreSQL, newest first. Requires DATABASE_URL or --db-url.`,
	RunE:  runJobsCmd,
}

var (
	jobsLimit       int
	jobsDatabaseURL string
)

func init() {
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum number of jobs to list")
	jobsCmd.Flags().StringVar(&jobsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(jobsCmd)
}

func runJobsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	databaseURL := jobsDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	listed, err := database.ListJobs(ctx, jobsLimit)
	if err != nil {
		return err
	}
	if len(listed) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-20s  %s\n", "JOB ID", "STATUS", "CREATED", "PROMPT")
	for _, job := range listed {
		prompt := job.InputPrompt
		if runes := []rune(prompt); len(runes) > 40 {
			prompt = string(runes[:40]) + "..."
		}
		fmt.Printf("%-36s  %-10s  %-20s  %s\n",
			job.ID, job.Status, job.CreatedAt.Format("2006-01-02 15:04:05"), prompt)
	}
	return nil
}
