package worker

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/jsharp6968/mala/internal/hasher"
	"github.com/jsharp6968/mala/internal/store"
	"github.com/jsharp6968/mala/internal/toolchain"
	"github.com/jsharp6968/mala/internal/toolrun"
	"github.com/jsharp6968/mala/internal/types"
	"github.com/jsharp6968/mala/internal/verifier"
)

// Stats summarizes one worker's pass over its assigned chunk of samples.
type Stats struct {
	Count     int // samples seen
	Handled   int // newly inserted samples
	Verified  int // samples verified/backfilled (verify mode only)
	SampleIDs []int64
}

// Worker processes a chunk of sample paths sequentially against one
// database connection and one configured toolchain, matching the
// one-connection-per-worker, strictly-sequential-within-a-chunk model
// spec.md §5 describes.
type Worker struct {
	DB        *store.DB
	Log       *slog.Logger
	Toolchain []toolchain.Spec
	Verify    bool
}

// New builds a Worker bound to db and the given toolchain.
func New(db *store.DB, log *slog.Logger, chain []toolchain.Spec, verify bool) *Worker {
	return &Worker{DB: db, Log: log, Toolchain: chain, Verify: verify}
}

// ProcessAll processes paths in order, accumulating Stats. Errors on
// individual samples are logged and swallowed (spec.md §7: "sample-level
// error: log, skip sample, continue chunk"). ProcessAll returns no error: a
// worker-level condition such as a broken DB connection also surfaces only
// as a logged failure on each remaining sample, and is not reported to the
// caller.
func (w *Worker) ProcessAll(ctx context.Context, paths []string) Stats {
	var stats Stats
	for _, path := range paths {
		stats.Count++
		id, handled, verified, err := w.Process(ctx, path)
		if err != nil {
			w.Log.Error("sample processing failed, skipping", "path", path, "error", err)
			continue
		}
		if handled {
			stats.Handled++
		}
		if verified {
			stats.Verified++
		}
		stats.SampleIDs = append(stats.SampleIDs, id)
	}
	return stats
}

// Process handles exactly one sample: hash it, look it up, and either
// insert+run the full toolchain (new sample) or, in verify mode, backfill
// whatever tool output is missing (known sample). Returns the sample's id,
// whether it was newly inserted, and whether it was verified.
func (w *Worker) Process(ctx context.Context, path string) (sampleID int64, handled bool, verified bool, err error) {
	digest, err := hasher.HashFile(path)
	if err != nil {
		return 0, false, false, err
	}

	id, known, err := w.DB.LookupSampleBySHA256(ctx, digest.SHA256)
	if err != nil {
		return 0, false, false, err
	}

	if known {
		if !w.Verify {
			return id, false, false, nil
		}
		if err := verifier.Verify(ctx, w.DB, w.Log, w.Toolchain, id, path); err != nil {
			return id, false, false, err
		}
		return id, false, true, nil
	}

	sample := types.Sample{
		MD5:      digest.MD5,
		SHA1:     digest.SHA1,
		SHA256:   digest.SHA256,
		Basename: filepath.Base(path),
		Path:     path,
		Size:     digest.Size,
	}
	id, err = w.DB.InsertSample(ctx, sample)
	if err != nil {
		return 0, false, false, err
	}

	for _, spec := range w.Toolchain {
		if err := toolrun.Run(ctx, w.DB, w.Log, spec, path, id); err != nil {
			// Tool-runtime error: log, drop this tool for this sample, continue
			// with the remaining tools (spec.md §7).
			w.Log.Error("tool run failed, continuing toolchain", "tool", spec.Raw, "path", path, "error", err)
		}
	}

	return id, true, false, nil
}
