package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vyvo/site/backend/pkg/jobs"
)

var watch bool

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a conversion job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !watch {
			s, err := jobsAPI.Status(cmd.Context(), args[0])
			if err != nil {
				return renderAPIError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", labelStyle.Render(args[0]), renderStatus(s))
			return nil
		}

		opts := pollOptions()
		opts.OnStatus = func(s jobs.Status) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", labelStyle.Render(args[0]), renderStatus(s))
		}
		if _, err := jobsAPI.Poll(cmd.Context(), args[0], opts); err != nil {
			return renderAPIError(err)
		}
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <job-id>",
	Short: "Print the download URL of a finished job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := jobsAPI.DownloadURL(cmd.Context(), args[0])
		if err != nil {
			return renderAPIError(err)
		}
		if loc.URL == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(loc.Raw))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), loc.URL)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the conversion service health endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := jobsAPI.Health(cmd.Context())
		if err != nil {
			return renderAPIError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", labelStyle.Render("health"), okStyle.Render(report.Status), dimStyle.Render(cfg.BaseURL()))
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling until the job finishes")
}
