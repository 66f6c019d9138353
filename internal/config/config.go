// Package config defines the immutable per-run configuration the scheduler
// and worker pool operate against (REDESIGN FLAG §9 item 3: replacing the
// Python original's mutation of a global TOOLCHAIN constant for
// --single_tool runs with an explicit, built-once field).
package config

import (
	"fmt"

	"github.com/jsharp6968/mala/internal/toolchain"
)

// Run is the full configuration for one pipeline invocation. Built once by
// cmd/mala from parsed flags and never mutated afterward; every goroutine
// the scheduler spawns reads the same immutable value.
type Run struct {
	Dir         string // root to walk
	DestDir     string // extraction output directory
	Filename    string // single sample path (singleshot mode)
	Extracted   bool   // skip extraction phase, discovery yields samples directly
	Singleshot  bool   // process exactly one sample then exit
	Verify      bool   // on already-known samples, fill in missing tool output
	FileLimit   int    // cap number of samples (0 = unlimited)
	WorkerCount int    // THREAD_LIMIT: number of partitions/worker goroutines
	ShrCutoff   int    // readability cutoff recorded on the Execution row
	Toolchain   []toolchain.Spec
	CmdLine     string // recorded verbatim on the Execution row
	DSN         string // Postgres connection string (built from MALA_DB_PASS + friends)
}

// New builds a Run, resolving the toolchain from either the full default
// chain or a --single_tool override. singleTool, when non-empty, replaces
// the entire chain with one spec — mirroring core.py's single_tool behavior
// without its global-mutation anti-pattern.
func New(opts Options) (Run, error) {
	raws := toolchain.DefaultChain
	if opts.SingleTool != "" {
		raws = []string{opts.SingleTool}
	}

	specs, err := toolchain.ParseChain(raws)
	if err != nil {
		return Run{}, fmt.Errorf("config: %w", err)
	}

	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount()
	}

	return Run{
		Dir:         opts.Dir,
		DestDir:     opts.DestDir,
		Filename:    opts.Filename,
		Extracted:   opts.Extracted,
		Singleshot:  opts.Singleshot,
		Verify:      opts.Verify,
		FileLimit:   opts.FileLimit,
		WorkerCount: workerCount,
		ShrCutoff:   ShrCutoffDefault,
		Toolchain:   specs,
		CmdLine:     opts.CmdLine,
		DSN:         opts.DSN,
	}, nil
}

// ShrCutoffDefault is the readability score cutoff recorded on every
// Execution row (constants.py: SHR_CUTOFF = 40).
const ShrCutoffDefault = 40

// Options is the raw, CLI-shaped input to New — one field per flag
// (spec.md §6).
type Options struct {
	Dir         string
	DestDir     string
	Filename    string
	Extracted   bool
	Singleshot  bool
	Verify      bool
	SingleTool  string
	FileLimit   int
	WorkerCount int
	CmdLine     string
	DSN         string
}
