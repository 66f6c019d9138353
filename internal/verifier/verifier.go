// Package verifier implements "verify" mode (C10): for an already-known
// sample, check each configured tool's output tables for rows and rerun any
// tool that left one of its tables without a row.
package verifier

import (
	"context"
	"log/slog"

	"github.com/jsharp6968/mala/internal/store"
	"github.com/jsharp6968/mala/internal/toolchain"
	"github.com/jsharp6968/mala/internal/toolrun"
)

// Verify checks sampleID's coverage across chain and reruns any tool with at
// least one table holding no row for the sample. The "strings" tool is always skipped (spec.md
// §4.10: its table is too large to probe cheaply per-sample).
func Verify(ctx context.Context, db *store.DB, log *slog.Logger, chain []toolchain.Spec, sampleID int64, samplePath string) error {
	for _, spec := range chain {
		if spec.Kind == toolchain.KindStrings {
			continue
		}

		complete, err := hasAllRows(ctx, db, sampleID, toolchain.Tables(spec.Kind))
		if err != nil {
			return err
		}
		if complete {
			continue
		}

		log.Info("verify: backfilling missing tool output", "tool", spec.Raw, "sample_id", sampleID)
		if err := toolrun.Run(ctx, db, log, spec, samplePath, sampleID); err != nil {
			log.Error("verify: rerun failed", "tool", spec.Raw, "sample_id", sampleID, "error", err)
		}
	}
	return nil
}

// hasAllRows reports whether sampleID has at least one row in every one of
// tables. A tool with multiple tables (e.g. diec) is only complete once
// every one of its tables has a row; a single empty table means the tool
// gets rerun (spec.md §4.10: "for each table count rows for this sample.
// If zero, rerun just that tool"; §3.5 requires every table in a verified
// sample's tool set to hold at least one row).
func hasAllRows(ctx context.Context, db *store.DB, sampleID int64, tables []string) (bool, error) {
	for _, table := range tables {
		n, err := db.SampleRowcountIn(ctx, sampleID, table)
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}
