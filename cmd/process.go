// =============================================================================
// FeliCa Ledger - Process Command
// =============================================================================
//
// COMMAND USAGE:
//   felica process [--file card.dump] [--format xml] [--dry-run]
//
// Every dump in input_dir is converted concurrently (max_concurrency
// workers). On success the ledger document lands in output_dir and the dump
// moves to input_archive_dir. Failed dumps stay where they are. A summary
// log is written to log_dir after every run.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/archive"
	"github.com/ginjaninja78/felica-ledger/internal/converter"
	"github.com/ginjaninja78/felica-ledger/internal/upload"
	"github.com/ginjaninja78/felica-ledger/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	dryRun        bool
	processFile   string
	processFormat string
	strictAudit   bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every card dump in the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runProcess(ctx, cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the dumps that would be processed and exit")
	processCmd.Flags().StringVar(&processFile, "file", "", "Process a single dump instead of the input directory")
	processCmd.Flags().StringVar(&processFormat, "format", "", "Override output_format (csv, xml, xlsx, json)")
	processCmd.Flags().BoolVar(&strictAudit, "strict", false, "Treat audit warnings as errors")
}

func runProcess(ctx context.Context, cmd *cobra.Command) error {
	start := time.Now()
	out := cmd.OutOrStdout()
	cfg := appConfig

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.LogDir)

	// =========================================================================
	// DISCOVER
	// =========================================================================

	var inputs []string
	if processFile != "" {
		inputs = []string{processFile}
	} else {
		found, err := files.DiscoverDumps()
		if err != nil {
			return err
		}
		inputs = found
	}

	if len(inputs) == 0 {
		fmt.Fprintln(out, "No dump files found in the input directory.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputs))

	if dryRun {
		for _, f := range inputs {
			fmt.Fprintf(out, "  %s\n", f)
		}
		return nil
	}

	// =========================================================================
	// BUILD PIPELINE
	// =========================================================================

	s, err := newScanner()
	if err != nil {
		return err
	}

	format := cfg.OutputFormat
	if processFormat != "" {
		format = processFormat
	}

	conv, err := converter.New(s, files, converter.Options{
		OutputFormat:     format,
		OutputNameFormat: cfg.OutputNameFormat,
		ContinueOnError:  cfg.ContinueOnError,
		Strict:           strictAudit,
		ArchiveInputs:    true,
	}, log)
	if err != nil {
		return err
	}

	if cfg.Archive.Enabled() {
		client, err := archive.Connect(ctx, cfg.Archive.MongoURI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		provider := archive.NewMongoProvider(client, cfg.Archive.Database)
		conv.WithArchive(archive.New(provider, cfg.Archive.Collection))
	}

	if cfg.Upload.Enabled() {
		u, closeClient, err := upload.NewGCS(ctx, cfg.Upload.Bucket, cfg.Upload.Prefix)
		if err != nil {
			return err
		}
		defer closeClient()
		conv.WithUploader(u)
	}

	// =========================================================================
	// RUN
	// =========================================================================

	results := conv.RunBatch(ctx, inputs, cfg.MaxConcurrency)

	for _, r := range results {
		if r.Success {
			fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(r.FilePath), r.OutputFile)
		} else {
			fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(r.FilePath), r.Error)
		}
	}

	summary := converter.Summarize(results, start, time.Now())
	summaryPath, err := files.WriteSummaryLog(summary)
	if err != nil {
		log.Warn().Err(err).Msg("failed to write summary log")
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Failed:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Transactions:    %d\n", summary.TotalTransactions)
	fmt.Fprintf(out, "Time elapsed:    %s\n", time.Since(start))
	if summaryPath != "" {
		fmt.Fprintf(out, "Summary:         %s\n", summaryPath)
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}
