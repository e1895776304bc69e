package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vyvo/site/backend/pkg/config"
	"github.com/vyvo/site/backend/pkg/jobs"
	"github.com/vyvo/site/backend/pkg/logging"
	"github.com/vyvo/site/backend/pkg/request"
	"github.com/vyvo/site/backend/pkg/telemetry"
)

var (
	verbose  bool
	envFlag  string
	baseURL  string
	cfg      config.ClientConfig
	logger   *slog.Logger
	jobsAPI  *jobs.Client
	shutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Operate the site's document conversion and chat services",
	Long: `sitectl talks to the same services the website uses.

It converts PDF, JPEG and PNG documents to CSV through the conversion API,
inspects running jobs, and lets you hold a conversation with the support
assistant from the terminal.

Quick Start:
  sitectl convert statement.pdf --out statement.csv
  sitectl status <job-id> --watch
  sitectl chat "Do you offer API access?"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadClient()
		if err != nil {
			return err
		}
		if envFlag != "" {
			loaded.Env = envFlag
		}
		if baseURL != "" {
			loaded.APIBaseURL = baseURL
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		cfg = loaded

		logger = logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		shutdown = telemetry.InitTracer(cmd.Context(), "sitectl", cfg.Tracing)
		jobsAPI = jobs.NewClient(request.NewClient(cfg.BaseURL(), request.WithTimeout(cfg.RequestTimeout)), logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown != nil {
			return shutdown(context.Background())
		}
		return nil
	},
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Deployment environment (development or production)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the conversion API base URL")

	rootCmd.AddCommand(convertCmd, statusCmd, downloadCmd, healthCmd, chatCmd)
}

func pollOptions() jobs.PollOptions {
	return jobs.PollOptions{Interval: cfg.PollInterval, MaxAttempts: cfg.MaxPollAttempts}
}
