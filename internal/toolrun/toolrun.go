// Package toolrun invokes one configured tool against a sample, parses its
// output, and persists the result — the invoke/parse/persist step shared by
// a full worker pass (C6) and a verifier backfill (C10).
package toolrun

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsharp6968/mala/internal/parser"
	"github.com/jsharp6968/mala/internal/store"
	"github.com/jsharp6968/mala/internal/toolchain"
)

// Run invokes spec against samplePath, parses its output, and persists the
// result for sampleID. A parse or invocation failure is returned to the
// caller to log and swallow — it must never abort sibling tool runs for the
// same sample (spec.md §4.4/§4.6).
func Run(ctx context.Context, db *store.DB, log *slog.Logger, spec toolchain.Spec, samplePath string, sampleID int64) error {
	out, err := toolchain.Invoke(ctx, spec, samplePath)
	if err != nil {
		return fmt.Errorf("toolrun: invoke %s: %w", spec.Raw, err)
	}

	switch spec.Kind {
	case toolchain.KindExiftool:
		rows, err := parser.ParseExiftool(out)
		if err != nil {
			return fmt.Errorf("toolrun: parse exiftool: %w", err)
		}
		return db.InsertExif(ctx, rows, sampleID)

	case toolchain.KindStrings:
		rows := parser.ParseStrings(out)
		return db.InsertStrings(ctx, log, rows, sampleID)

	case toolchain.KindTLSH:
		hash, err := parser.ParseTLSH(out)
		if err != nil {
			return fmt.Errorf("toolrun: parse tlsh: %w", err)
		}
		return db.InsertTLSH(ctx, hash, sampleID)

	case toolchain.KindSSDeep:
		hash, err := parser.ParseSSDeep(out)
		if err != nil {
			return fmt.Errorf("toolrun: parse ssdeep: %w", err)
		}
		return db.InsertSSDeep(ctx, hash, sampleID)

	case toolchain.KindDiec:
		return runDiec(ctx, db, spec, out, sampleID)

	default:
		return fmt.Errorf("toolrun: unhandled tool kind %s", spec.Kind)
	}
}

// runDiec dispatches between diec's two output shapes (entropy vs detect)
// based on which flag the spec was configured with, matching the two
// diec toolchain entries spec.md §6 names (`-je` and `-jd`).
func runDiec(ctx context.Context, db *store.DB, spec toolchain.Spec, out []byte, sampleID int64) error {
	if hasArg(spec.Args, "-je") {
		records, meta, err := parser.ParseDiecEntropy(out)
		if err != nil {
			return fmt.Errorf("toolrun: parse diec entropy: %w", err)
		}
		return db.InsertDiecEntropy(ctx, records, meta, sampleID)
	}
	if hasArg(spec.Args, "-jd") {
		rows, err := parser.ParseDiecDetect(out)
		if err != nil {
			return fmt.Errorf("toolrun: parse diec detect: %w", err)
		}
		return db.InsertDiecDetectRows(ctx, rows, sampleID)
	}
	return fmt.Errorf("toolrun: diec spec %q has neither -je nor -jd", spec.Raw)
}

func hasArg(args []string, target string) bool {
	for _, a := range args {
		if a == target {
			return true
		}
	}
	return false
}
