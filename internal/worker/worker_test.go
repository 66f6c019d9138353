package worker

import (
	"log/slog"
	"testing"

	"github.com/jsharp6968/mala/internal/toolchain"
)

func TestNewBuildsWorkerWithGivenToolchain(t *testing.T) {
	chain, err := toolchain.ParseChain(toolchain.DefaultChain)
	if err != nil {
		t.Fatalf("ParseChain returned error: %v", err)
	}

	w := New(nil, slog.Default(), chain, false)
	if len(w.Toolchain) != len(toolchain.DefaultChain) {
		t.Errorf("Toolchain has %d specs, want %d", len(w.Toolchain), len(toolchain.DefaultChain))
	}
	if w.Verify {
		t.Error("Verify should default to false when constructed with false")
	}
}

func TestProcessAllCountsEachPath(t *testing.T) {
	// Processing paths that don't exist on disk fails hashing for every one;
	// ProcessAll must still count them as "seen" and skip past each error
	// rather than aborting the whole chunk (spec.md §7).
	w := New(nil, slog.Default(), nil, false)
	stats := w.ProcessAll(nil, []string{"/nonexistent/a", "/nonexistent/b"})

	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if stats.Handled != 0 {
		t.Errorf("Handled = %d, want 0", stats.Handled)
	}
}
