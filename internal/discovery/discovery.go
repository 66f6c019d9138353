// Package discovery implements C7: a recursive directory walk that yields
// sample candidates. In "extracted" mode it yields every non-.7z regular
// file; in "archive" mode it yields .7z files, consulting the
// Package-known heuristic so already-fully-ingested archives are skipped.
//
// Adapted from dupedog's internal/scanner fan-out/fan-in walker: the same
// semaphore-bounded recursive goroutine-per-directory shape, re-purposed to
// emit archive/sample candidates instead of size-filtered duplicates.
package discovery

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jsharp6968/mala/internal/types"
)

// KnownChecker decides whether an archive candidate is already fully
// ingested and can be skipped. Implemented by internal/store in production;
// kept as an interface here so discovery has no direct database dependency.
type KnownChecker interface {
	IsPackageKnown(ctx context.Context, basename string) (bool, error)
}

// Walker discovers candidate files under a set of root paths.
type Walker struct {
	Extracted bool // true: yield non-.7z files. false: yield .7z archives.
	Workers   int  // max concurrent directory reads
	Known     KnownChecker
}

// New builds a Walker. Known may be nil when Extracted is true (the
// package-known heuristic only applies to archive discovery).
func New(extracted bool, workers int, known KnownChecker) *Walker {
	return &Walker{Extracted: extracted, Workers: workers, Known: known}
}

// Walk discovers candidate files under root, deduplicated by absolute path.
func (w *Walker) Walk(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	sem := types.NewSemaphore(w.Workers)
	resultCh := make(chan string, 1000)

	var results []string
	seen := make(map[string]struct{})
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for path := range resultCh {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			results = append(results, path)
		}
	}()

	var walkerWg sync.WaitGroup
	w.walkDirectory(ctx, absRoot, sem, resultCh, &walkerWg)

	walkerWg.Wait()
	close(resultCh)
	collectorWg.Wait()

	return results, nil
}

func (w *Walker) walkDirectory(ctx context.Context, dir string, sem types.Semaphore, resultCh chan<- string, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		sem.Acquire()
		defer sem.Release()

		files, subdirs, err := listDirectory(dir)
		if err != nil {
			return
		}

		for _, f := range files {
			if w.accepts(ctx, f) {
				resultCh <- f
			}
		}

		for _, sub := range subdirs {
			w.walkDirectory(ctx, sub, sem, resultCh, wg)
		}
	}()
}

// accepts applies the extracted/archive mode filter and, for archives, the
// Package-known heuristic (spec.md §3: skip an archive whose basename is
// already recorded and ≥90% of its declared contents are linked).
func (w *Walker) accepts(ctx context.Context, path string) bool {
	isArchive := strings.HasSuffix(strings.ToLower(path), ".7z")

	if w.Extracted {
		return !isArchive
	}
	if !isArchive {
		return false
	}
	if w.Known == nil {
		return true
	}

	known, err := w.Known.IsPackageKnown(ctx, filepath.Base(path))
	if err != nil {
		// Discovery-level errors on the known-check are conservative: treat
		// as not known so the archive is re-queued rather than silently lost.
		return true
	}
	return !known
}

// listDirectory reads a single directory's entries, batched to bound memory
// on directories with very large entry counts, exactly as dupedog's
// scanner.listDirectory does.
func listDirectory(dirPath string) (files []string, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return files, subdirs, err
			}
			break
		}

		for _, entry := range entries {
			full := filepath.Join(dirPath, entry.Name())
			if entry.IsDir() {
				subdirs = append(subdirs, full)
				continue
			}
			if entry.Type().IsRegular() {
				files = append(files, full)
			}
		}
	}

	return files, subdirs, nil
}
