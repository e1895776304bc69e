package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyvo/site/backend/pkg/delivery"
	"github.com/vyvo/site/backend/pkg/jobs"
)

var (
	outPath    string
	sftpTarget string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a PDF, JPEG or PNG document to CSV",
	Long: `Upload a document, wait for the conversion job to finish and save the CSV.

The file is checked locally first: only PDF, JPEG and PNG files up to 20 MB
are sent. By default the CSV is written next to the input; use --out to pick
a path or --sftp user@host[:port]/dir to deliver it to an SFTP drop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file, err := jobs.OpenFile(args[0])
		if err != nil {
			return err
		}
		if err := jobs.ValidateFile(file); err != nil {
			return renderAPIError(err)
		}

		opts := pollOptions()
		opts.OnStatus = func(s jobs.Status) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", labelStyle.Render("status"), renderStatus(s))
		}

		res, err := jobsAPI.Convert(ctx, file, opts)
		if err != nil {
			return renderAPIError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", labelStyle.Render("job"), res.Job.ID)

		if res.Status.Outcome() == jobs.OutcomeFailed {
			return fmt.Errorf("conversion failed: %s", failureMessage(res.Status))
		}

		data, err := jobsAPI.FetchArtifact(ctx, res.Locator)
		if err != nil {
			return renderAPIError(err)
		}

		name := csvName(file.Name)
		if sftpTarget != "" {
			target, err := delivery.ParseTarget(sftpTarget)
			if err != nil {
				return err
			}
			target.Password = cfg.SFTPPassword
			target.KeyPath = cfg.SFTPKeyPath
			remote, err := delivery.NewUploader(target, logger).Upload(ctx, name, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s:%s\n", okStyle.Render("delivered"), target.Host, remote)
			return nil
		}

		dest := outPath
		if dest == "" {
			dest = filepath.Join(filepath.Dir(args[0]), name)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d bytes)\n", okStyle.Render("saved"), dest, len(data))
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&outPath, "out", "o", "", "Where to write the CSV")
	convertCmd.Flags().StringVar(&sftpTarget, "sftp", "", "Deliver the CSV to user@host[:port]/dir instead of writing it locally")
}

func csvName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

func failureMessage(s jobs.Status) string {
	if s.Message != "" {
		return s.Message
	}
	if len(s.Error) > 0 {
		return string(s.Error)
	}
	return "the document could not be processed"
}
