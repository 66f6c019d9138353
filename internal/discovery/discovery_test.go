package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkExtractedModeSkipsArchives(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"))
	writeFile(t, filepath.Join(root, "pkg.7z"))
	writeFile(t, filepath.Join(root, "sub", "b.exe"))

	w := New(true, 4, nil)
	got, err := w.Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}

	sort.Strings(got)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(got), got)
	}
	for _, p := range got {
		if filepath.Ext(p) == ".7z" {
			t.Errorf("extracted mode yielded an archive: %s", p)
		}
	}
}

func TestWalkArchiveModeYieldsOnlySevenZip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"))
	writeFile(t, filepath.Join(root, "pkg.7z"))
	writeFile(t, filepath.Join(root, "sub", "pkg2.7Z"))

	w := New(false, 4, nil)
	got, err := w.Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(got), got)
	}
}

type fakeKnown struct{ known bool }

func (f fakeKnown) IsPackageKnown(ctx context.Context, basename string) (bool, error) {
	return f.known, nil
}

func TestWalkArchiveModeSkipsKnownPackages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pkg.7z"))

	w := New(false, 4, fakeKnown{known: true})
	got, err := w.Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0 (archive should be known/skipped): %v", len(got), got)
	}
}

func TestWalkYieldsEachFileOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"))

	w := New(true, 4, nil)
	got, err := w.Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
}
