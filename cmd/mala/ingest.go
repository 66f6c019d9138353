package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsharp6968/mala/internal/config"
	"github.com/jsharp6968/mala/internal/scheduler"
	"github.com/jsharp6968/mala/internal/store"
	"github.com/jsharp6968/mala/internal/worker"
)

// ingestOptions holds CLI flags for the ingest command, one field per
// argparser.py argument plus --workers (THREAD_LIMIT has no CLI knob in the
// Python original, which reads only os.cpu_count(); mala exposes it the way
// dupedog's dedupe command exposes --workers).
type ingestOptions struct {
	filename   string
	dir        string
	destDir    string
	extracted  bool
	singleshot bool
	verify     bool
	singleTool string
	fileLimit  int
	workers    int
}

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	opts := &ingestOptions{
		dir:     ".",
		destDir: ".",
	}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Discover, extract, and analyze malware samples into MalaDB",
		Long: `Walks a directory of password-protected .7z archives (or already-extracted
samples with --extracted), runs the configured tool chain over each new
sample, and records results in MalaDB.

Use --singleshot --filename to ingest exactly one sample file directly,
bypassing discovery and extraction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.filename, "filename", "", "File for single file mode")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", opts.dir, "A directory to scan for 7z files")
	cmd.Flags().StringVarP(&opts.destDir, "dest_dir", "D", opts.destDir, "A directory to extract malware samples into")
	cmd.Flags().BoolVarP(&opts.extracted, "extracted", "e", false, "All samples already extracted")
	cmd.Flags().BoolVarP(&opts.singleshot, "singleshot", "s", false, "Ingest one malware sample")
	cmd.Flags().BoolVarP(&opts.verify, "verify", "v", false, "If we know a sample, verify the current toolchain has been run and get any missing tool outputs")
	cmd.Flags().StringVar(&opts.singleTool, "single_tool", "", "One tool cmdline to run on every input sample, in quotes")
	cmd.Flags().IntVar(&opts.fileLimit, "filelimit", 0, "How many samples to process into MalaDB")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of worker partitions (default: number of CPUs)")

	return cmd
}

// runIngest builds a config.Run from opts and either processes a single
// sample directly (singleshot) or hands off to the scheduler for the full
// discover/extract/partition/fan-out lifecycle.
func runIngest(_ *cobra.Command, opts *ingestOptions) error {
	dsn, err := config.BuildDSN()
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	cfg, err := config.New(config.Options{
		Dir:         opts.dir,
		DestDir:     opts.destDir,
		Filename:    opts.filename,
		Extracted:   opts.extracted,
		Singleshot:  opts.singleshot,
		Verify:      opts.verify,
		SingleTool:  opts.singleTool,
		FileLimit:   opts.fileLimit,
		WorkerCount: opts.workers,
		CmdLine:     strings.Join(os.Args, " "),
		DSN:         dsn,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	log := newLogger()
	ctx := context.Background()

	if cfg.Singleshot {
		return runSingleshot(ctx, cfg, log)
	}

	sched := scheduler.New(cfg, log)
	_, err = sched.Run(ctx)
	if err == scheduler.ErrNoFiles {
		fmt.Println("No files to process, exiting.")
		return err
	}
	return err
}

// runSingleshot processes exactly one sample file directly, bypassing
// discovery, extraction, and partitioning entirely (spec.md: "process
// exactly one sample then exit").
func runSingleshot(ctx context.Context, cfg config.Run, log *slog.Logger) error {
	if cfg.Filename == "" {
		return fmt.Errorf("ingest: --singleshot requires --filename")
	}

	db, err := store.Open(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	defer func() { _ = db.Close() }()

	w := worker.New(db, log, cfg.Toolchain, cfg.Verify)
	id, handled, verified, err := w.Process(ctx, cfg.Filename)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("sample %d: handled=%t verified=%t\n", id, handled, verified)
	return nil
}
