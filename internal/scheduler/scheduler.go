// Package scheduler implements C9: resolving target files, load-balancing
// them across worker goroutines, and recording the run as an Execution.
//
// Goroutines substitute for OS processes per REDESIGN FLAG §9 item 2 — each
// scheduler-spawned goroutine owns one pinned database connection and its
// own worker over the run's toolchain specs, exactly the isolation dupedog's original process-per-
// worker model bought, at goroutine cost instead of fork cost.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jsharp6968/mala/internal/config"
	"github.com/jsharp6968/mala/internal/discovery"
	"github.com/jsharp6968/mala/internal/extractor"
	"github.com/jsharp6968/mala/internal/hasher"
	"github.com/jsharp6968/mala/internal/progress"
	"github.com/jsharp6968/mala/internal/store"
	"github.com/jsharp6968/mala/internal/toolchain"
	"github.com/jsharp6968/mala/internal/types"
	"github.com/jsharp6968/mala/internal/worker"
)

// ErrNoFiles is returned when discovery yields an empty work set. cmd/mala
// translates this into an exit code of 1 (spec.md §7/§8).
var ErrNoFiles = errors.New("scheduler: no files to process")

// extractConcurrency is the fixed parallelism for archive extraction
// (spec.md §5: "exactly 2 parallel workers, I/O-bound, contends on disk").
const extractConcurrency = 2

// Scheduler drives one run of the pipeline end to end: discover, optionally
// extract, partition, fan out workers, fan in results, record the
// Execution.
type Scheduler struct {
	cfg config.Run
	log *slog.Logger
	bar *progress.Bar
}

// New builds a Scheduler for cfg.
func New(cfg config.Run, log *slog.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, log: log, bar: progress.New(true, -1)}
}

// Run executes the INIT -> DISCOVER -> (EXTRACT?) -> PARTITION -> FAN_OUT ->
// FAN_IN -> RECORD -> DONE lifecycle (spec.md §4.9). Terminal failures
// before PARTITION are returned to the caller and no Execution row is
// written. Per-sample failures inside a worker are contained and reflected
// only in stats; a worker that cannot open its database connection makes Run
// return an error, and no Execution row is written for that run either.
func (s *Scheduler) Run(ctx context.Context) (types.Execution, error) {
	start := time.Now()

	paths, err := s.discover(ctx)
	if err != nil {
		return types.Execution{}, fmt.Errorf("scheduler: discover: %w", err)
	}
	if s.cfg.FileLimit > 0 && len(paths) > s.cfg.FileLimit {
		paths = paths[:s.cfg.FileLimit]
	}
	if len(paths) == 0 {
		return types.Execution{}, ErrNoFiles
	}

	sized, err := sizeAll(paths)
	if err != nil {
		return types.Execution{}, fmt.Errorf("scheduler: size samples: %w", err)
	}

	bins := partitionLPT(sized, s.cfg.WorkerCount)

	results, err := s.fanOut(ctx, bins)
	if err != nil {
		return types.Execution{}, fmt.Errorf("scheduler: fan out: %w", err)
	}

	exec := aggregate(results, s.cfg, start, len(paths))

	if err := s.record(ctx, exec, results); err != nil {
		return types.Execution{}, fmt.Errorf("scheduler: record execution: %w", err)
	}

	var totalBytes int64
	for _, sp := range sized {
		totalBytes += sp.size
	}

	s.bar.Finish(throughputStats{exec: exec})
	fmt.Printf("Handled %d files (%s) in %s\n", exec.HandledCount, humanize.Bytes(uint64(totalBytes)), time.Since(start))

	return exec, nil
}

// discover resolves the target file set: in extracted mode, walk for
// samples directly; otherwise walk for archives, extract each with bounded
// concurrency, then walk the destination directory for samples.
func (s *Scheduler) discover(ctx context.Context) ([]string, error) {
	if s.cfg.Extracted {
		w := discovery.New(true, s.cfg.WorkerCount, nil)
		return w.Walk(ctx, s.cfg.Dir)
	}

	archiveDB, err := store.Open(ctx, s.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("scheduler: open db for package discovery: %w", err)
	}
	archiveWalker := discovery.New(false, s.cfg.WorkerCount, archiveDB)
	archives, err := archiveWalker.Walk(ctx, s.cfg.Dir)
	_ = archiveDB.Close()
	if err != nil {
		return nil, err
	}

	s.extractAll(ctx, archives)

	sampleWalker := discovery.New(true, s.cfg.WorkerCount, nil)
	return sampleWalker.Walk(ctx, s.cfg.DestDir)
}

// extractAll extracts every archive with extractConcurrency parallelism,
// recording a t_package row for each archive before extracting it (spec.md
// §3's Package lifecycle: a package is known by MD5, not basename alone;
// basename drives the discovery-time known-check, MD5 the stored identity).
// Extraction failures are logged and swallowed (spec.md §4.8: "failure is
// logged and swallowed; the file is dropped from the work set").
func (s *Scheduler) extractAll(ctx context.Context, archives []string) {
	sem := types.NewSemaphore(extractConcurrency)
	var g errgroup.Group

	for _, archive := range archives {
		archive := archive
		sem.Acquire()
		g.Go(func() error {
			defer sem.Release()

			if err := s.registerPackage(ctx, archive); err != nil {
				s.log.Error("package registration failed", "archive", archive, "error", err)
			}

			dest := destinationFor(archive, s.cfg.DestDir)
			if err := extractor.Extract(archive, dest); err != nil {
				s.log.Error("extraction failed, dropping archive", "archive", archive, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// registerPackage inserts a t_package row for a newly-discovered archive,
// keyed by the archive's MD5 (original_source/create_db.py: t_package.md5
// is the uniqueness key), with fcount set to the archive's actual entry
// count so later runs' known-ratio check has a real denominator.
func (s *Scheduler) registerPackage(ctx context.Context, archive string) error {
	db, err := store.Open(ctx, s.cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	fi, err := os.Stat(archive)
	if err != nil {
		return err
	}

	digest, err := hasher.HashFile(archive)
	if err != nil {
		return err
	}

	fcount, err := extractor.EntryCount(archive)
	if err != nil {
		return err
	}

	_, err = db.InsertPackage(ctx, types.Package{
		MD5:           digest.MD5,
		Basename:      filepath.Base(archive),
		Path:          archive,
		Size:          fi.Size(),
		DateIngested:  time.Now(),
		DeclaredCount: fcount,
	})
	return err
}

// fanOut spawns one goroutine per bin, each owning its own database
// connection, and fans the resulting stats back in.
func (s *Scheduler) fanOut(ctx context.Context, bins [][]string) ([]worker.Stats, error) {
	results := make([]worker.Stats, len(bins))
	g, ctx := errgroup.WithContext(ctx)

	stats := &runStats{startTime: time.Now()}
	s.bar.Describe(stats)

	for i, bin := range bins {
		i, bin := i, bin
		if len(bin) == 0 {
			continue
		}
		g.Go(func() error {
			db, err := store.Open(ctx, s.cfg.DSN)
			if err != nil {
				return fmt.Errorf("worker %d: open db: %w", i, err)
			}
			defer func() { _ = db.Close() }()

			w := worker.New(db, s.log, s.cfg.Toolchain, s.cfg.Verify)
			results[i] = w.ProcessAll(ctx, bin)

			stats.processed.Add(int64(results[i].Count))
			stats.handled.Add(int64(results[i].Handled))
			s.bar.Describe(stats)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// record writes the Execution row and a FileIngest row for every sample
// touched, using a fresh connection (the fan-out connections have already
// been closed by this point).
func (s *Scheduler) record(ctx context.Context, exec types.Execution, results []worker.Stats) error {
	db, err := store.Open(ctx, s.cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	execID, err := db.InsertExecution(ctx, exec)
	if err != nil {
		return err
	}

	for _, r := range results {
		for _, sampleID := range r.SampleIDs {
			if err := db.LinkSampleToExecution(ctx, sampleID, execID); err != nil {
				s.log.Error("link sample to execution failed", "sample_id", sampleID, "error", err)
			}
		}
	}
	return nil
}

func aggregate(results []worker.Stats, cfg config.Run, start time.Time, sanityCount int) types.Execution {
	var handled, verified int
	for _, r := range results {
		handled += r.Handled
		verified += r.Verified
	}

	return types.Execution{
		UUID:          uuid.NewString(),
		CmdLine:       cfg.CmdLine,
		FileCount:     sanityCount,
		StartTime:     start,
		FinishTime:    time.Now(),
		Toolchain:     toolchainSignature(cfg.Toolchain),
		WorkerCount:   cfg.WorkerCount,
		ShrCutoff:     cfg.ShrCutoff,
		SanityCount:   sanityCount,
		HandledCount:  handled,
		VerifiedCount: verified,
	}
}

// toolchainSignature renders the configured chain as the raw specs joined
// with "|" (each raw spec already contains commas), recorded verbatim on the Execution row so a later run can tell
// which toolchain produced a given sample.
func toolchainSignature(specs []toolchain.Spec) string {
	raws := make([]string, len(specs))
	for i, s := range specs {
		raws[i] = s.Raw
	}
	return strings.Join(raws, "|")
}

func sizeAll(paths []string) ([]sizedPath, error) {
	sized := make([]sizedPath, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		sized = append(sized, sizedPath{path: p, size: fi.Size()})
	}
	return sized, nil
}

// destinationFor computes an archive's extraction directory: destDir joined
// with the archive's basename minus its extension.
func destinationFor(archivePath, destDir string) string {
	base := filepath.Base(archivePath)
	return filepath.Join(destDir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// throughputStats adapts an Execution into the fmt.Stringer progress.Bar
// expects.
type throughputStats struct {
	exec types.Execution
}

func (t throughputStats) String() string {
	elapsed := t.exec.FinishTime.Sub(t.exec.StartTime)
	return fmt.Sprintf("handled %d, verified %d in %s", t.exec.HandledCount, t.exec.VerifiedCount, elapsed)
}

// runStats tracks fan-out progress with atomic counters, matching dupedog's
// scanner.stats: every worker goroutine updates it lock-free as its bin
// completes, and fanOut feeds it to bar.Describe so the spinner reflects
// real progress instead of sitting idle until Finish.
type runStats struct {
	processed atomic.Int64
	handled   atomic.Int64
	startTime time.Time
}

func (r *runStats) String() string {
	return fmt.Sprintf("processed %d samples (%d handled) in %.1fs",
		r.processed.Load(), r.handled.Load(), time.Since(r.startTime).Seconds())
}
