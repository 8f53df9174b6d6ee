package commands

import (
	"fmt"

	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/spf13/cobra"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Dir string
	S3  string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <execution-id>",
		Short: "Download the full results of an execution",
		Long: `Download the complete result file of a finished execution.

The file name is taken from the backend's Content-Disposition header and
defaults to query_results.csv. The file is written to --dir, or uploaded to
an S3 location with --s3 (credentials and endpoint from the s3 config
section).`,
		Example: `  # Save into the current directory
  zeus export 6f1c2f6e

  # Save into ./exports
  zeus export 6f1c2f6e --dir exports

  # Upload to S3-compatible storage
  zeus export 6f1c2f6e --s3 s3://analytics/exports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory to write the file to (default: export_dir from config)")
	cmd.Flags().StringVar(&opts.S3, "s3", "", "Upload to s3://bucket[/prefix] instead of writing a file")
	cmd.MarkFlagsMutuallyExclusive("dir", "s3")

	return cmd
}

func runExport(cmd *cobra.Command, execID string, opts *ExportOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	sink, err := exportSink(cmdCtx, opts)
	if err != nil {
		return err
	}

	location, err := results.Export(cmd.Context(), cmdCtx.Client, execID, sink)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]string{"executionId": execID, "location": location})
	}
	r.Success(fmt.Sprintf("Exported %s to %s", execID, location))
	return nil
}

func exportSink(cmdCtx *CommandContext, opts *ExportOptions) (results.Sink, error) {
	if opts.S3 != "" {
		bucket, prefix, err := results.ParseS3URL(opts.S3)
		if err != nil {
			return nil, err
		}
		sink, err := results.NewS3Sink(cmdCtx.Cfg.S3.Sink(bucket, prefix), cmdCtx.Logger)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = cmdCtx.Cfg.ExportDir
	}
	return results.FileSink{Dir: dir}, nil
}
