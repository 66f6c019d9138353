//go:build e2e

package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jsharp6968/mala/internal/parser"
	"github.com/jsharp6968/mala/internal/types"
)

// testDSN starts a disposable Postgres container and returns a DSN
// connections can be opened against. Docker must be reachable; skipped
// automatically otherwise, matching the teacher's container-dependent test
// convention.
func testDSN(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	dsn, cleanup, err := startPostgres(ctx)
	if err != nil {
		t.Skipf("docker unavailable or postgres failed to start: %v", err)
	}
	t.Cleanup(cleanup)
	return dsn
}

// testDB starts a disposable Postgres container and returns one connection
// to it.
func testDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Scenario 1 (spec.md §8): a single fresh sample gets exactly one t_file row
// and at least one linked t_exiftool row.
func TestSingleFreshSample(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.InsertSample(ctx, types.Sample{
		MD5: "d41d8cd98f00b204e9800998ecf8427e", SHA1: "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		SHA256: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Basename: "sample.bin", Path: "/corpus/sample.bin", Size: 0,
	})
	if err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	if err := db.InsertExif(ctx, []parser.ExifRow{{Tag: "FileType", Content: "PE32"}}, id); err != nil {
		t.Fatalf("InsertExif: %v", err)
	}

	n, err := db.SampleRowcountIn(ctx, id, "t_exiftool")
	if err != nil {
		t.Fatalf("SampleRowcountIn: %v", err)
	}
	if n < 1 {
		t.Errorf("got %d t_exiftool rows, want >= 1", n)
	}
}

// Scenario 2: processing the same sample twice yields one t_file row; the
// second lookup reports it as already known.
func TestDedupBySHA256(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	sample := types.Sample{
		MD5: "0cc175b9c0f1b6a831c399e269772661", SHA1: "86f7e437faa5a7fce15d1ddcb9eaeaea377667b8",
		SHA256: "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb",
		Basename: "a.bin", Path: "/corpus/a.bin", Size: 1,
	}

	id1, err := db.InsertSample(ctx, sample)
	if err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	id2, known, err := db.LookupSampleBySHA256(ctx, sample.SHA256)
	if err != nil {
		t.Fatalf("LookupSampleBySHA256: %v", err)
	}
	if !known {
		t.Fatal("expected sample to be known on re-lookup")
	}
	if id2 != id1 {
		t.Errorf("got id %d, want %d", id2, id1)
	}
}

// Scenario 6: a sample with no t_tlsh rows gains exactly one after
// backfill. A direct InsertTLSH call stands in for C10's rerun; the unit
// test in internal/verifier covers only its strings-skip path.
func TestVerifyBackfillsMissingTLSH(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.InsertSample(ctx, types.Sample{
		MD5: "1", SHA1: "1", SHA256: "f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1f1",
		Basename: "f.bin", Path: "/corpus/f.bin", Size: 2,
	})
	if err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	before, _ := db.SampleRowcountIn(ctx, id, "t_tlsh")
	if before != 0 {
		t.Fatalf("expected 0 t_tlsh rows before backfill, got %d", before)
	}

	if err := db.InsertTLSH(ctx, "T1A2B3C4", id); err != nil {
		t.Fatalf("InsertTLSH: %v", err)
	}

	after, err := db.SampleRowcountIn(ctx, id, "t_tlsh")
	if err != nil {
		t.Fatalf("SampleRowcountIn: %v", err)
	}
	if after != 1 {
		t.Errorf("got %d t_tlsh rows after backfill, want 1", after)
	}
}

// Scenario 5: two workers concurrently inserting overlapping new string sets
// both complete, and the final t_strings row count equals the union size of
// distinct values inserted.
func TestConcurrentStringInsertDeadlockRetry(t *testing.T) {
	ctx := context.Background()
	dsn := testDSN(t)

	db1, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open first connection: %v", err)
	}
	t.Cleanup(func() { _ = db1.Close() })

	db2, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open second connection: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })

	sampleA, err := db1.InsertSample(ctx, types.Sample{
		MD5: "a", SHA1: "a", SHA256: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Basename: "a.bin", Path: "/corpus/a.bin", Size: 1,
	})
	if err != nil {
		t.Fatalf("InsertSample a: %v", err)
	}
	sampleB, err := db2.InsertSample(ctx, types.Sample{
		MD5: "b", SHA1: "b", SHA256: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Basename: "b.bin", Path: "/corpus/b.bin", Size: 1,
	})
	if err != nil {
		t.Fatalf("InsertSample b: %v", err)
	}

	shared := []parser.StringRow{
		{Value: "overlap-one", Score: 100, Offset: 0},
		{Value: "overlap-two", Score: 100, Offset: 8},
	}
	uniqueA := []parser.StringRow{{Value: "only-a", Score: 100, Offset: 16}}
	uniqueB := []parser.StringRow{{Value: "only-b", Score: 100, Offset: 16}}

	log := discardLogger()
	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() {
		defer wg.Done()
		errA = db1.InsertStrings(ctx, log, append(append([]parser.StringRow{}, shared...), uniqueA...), sampleA)
	}()
	go func() {
		defer wg.Done()
		errB = db2.InsertStrings(ctx, log, append(append([]parser.StringRow{}, shared...), uniqueB...), sampleB)
	}()
	wg.Wait()

	if errA != nil {
		t.Errorf("worker A InsertStrings: %v", errA)
	}
	if errB != nil {
		t.Errorf("worker B InsertStrings: %v", errB)
	}

	var n int
	if err := db1.conn.QueryRowContext(ctx, `SELECT count(*) FROM t_strings`).Scan(&n); err != nil {
		t.Fatalf("count t_strings: %v", err)
	}
	const wantDistinct = 4 // overlap-one, overlap-two, only-a, only-b
	if n != wantDistinct {
		t.Errorf("got %d distinct t_strings rows, want %d", n, wantDistinct)
	}
}

// Package lifecycle: InsertPackage, SearchPackage, and PackageSampleCount
// together drive the known-ratio gate in internal/discovery.
func TestPackageLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	pkg := types.Package{
		MD5: "deadbeefdeadbeefdeadbeefdeadbeef", Basename: "corpus.7z",
		Path: "/incoming/corpus.7z", Size: 4096, DateIngested: time.Now(), DeclaredCount: 3,
	}
	id, err := db.InsertPackage(ctx, pkg)
	if err != nil {
		t.Fatalf("InsertPackage: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero package id")
	}

	found, err := db.SearchPackage(ctx, "corpus.7z")
	if err != nil {
		t.Fatalf("SearchPackage: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d packages, want 1", len(found))
	}
	if found[0].MD5 != pkg.MD5 || found[0].DeclaredCount != pkg.DeclaredCount {
		t.Errorf("got %+v, want md5/fcount matching %+v", found[0], pkg)
	}

	shas := []string{
		"pkglifecycle000000000000000000000000000000000000000000000000000",
		"pkglifecycle000000000000000000000000000000000000000000000000001",
	}
	for i, sha := range shas {
		sample := types.Sample{
			MD5: "m", SHA1: "s", SHA256: sha,
			Basename: fmt.Sprintf("sample%d.bin", i), Path: "/incoming/corpus/sample.bin", Size: 1,
		}
		if _, err := db.InsertSample(ctx, sample); err != nil {
			t.Fatalf("InsertSample %d: %v", i, err)
		}
	}

	n, err := db.PackageSampleCount(ctx, "corpus")
	if err != nil {
		t.Fatalf("PackageSampleCount: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d samples under corpus/, want 2", n)
	}
}

// Execution lifecycle: InsertExecution followed by LinkSampleToExecution
// records the join row the aggregate/record step in internal/scheduler
// relies on.
func TestExecutionLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	sampleID, err := db.InsertSample(ctx, types.Sample{
		MD5: "e", SHA1: "e", SHA256: "exec0000000000000000000000000000000000000000000000000000000000",
		Basename: "exec.bin", Path: "/corpus/exec.bin", Size: 1,
	})
	if err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	start := time.Now()
	execID, err := db.InsertExecution(ctx, types.Execution{
		UUID: "11111111-1111-1111-1111-111111111111", CmdLine: "mala ingest -d .",
		FileCount: 1, StartTime: start, FinishTime: start.Add(time.Second),
		Toolchain: "exiftool,-S,-j,-P", WorkerCount: 2, ShrCutoff: 40,
		SanityCount: 1, HandledCount: 1, VerifiedCount: 0,
	})
	if err != nil {
		t.Fatalf("InsertExecution: %v", err)
	}
	if execID == 0 {
		t.Fatal("expected nonzero execution id")
	}

	if err := db.LinkSampleToExecution(ctx, sampleID, execID); err != nil {
		t.Fatalf("LinkSampleToExecution: %v", err)
	}
}

// Tool-output persistence not already exercised by scenarios 1/6:
// InsertSSDeep, InsertDiecDetectRows, InsertDiecEntropy, and SamplePath.
func TestToolOutputPersistenceAndSamplePath(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.InsertSample(ctx, types.Sample{
		MD5: "t", SHA1: "t", SHA256: "toolout0000000000000000000000000000000000000000000000000000000",
		Basename: "tool.bin", Path: "/corpus/tool.bin", Size: 1,
	})
	if err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	if err := db.InsertSSDeep(ctx, "3:abc:def", id); err != nil {
		t.Fatalf("InsertSSDeep: %v", err)
	}
	if n, _ := db.SampleRowcountIn(ctx, id, "t_ssdeep"); n != 1 {
		t.Errorf("got %d t_ssdeep rows, want 1", n)
	}

	detectRows := []parser.DiecDetectRow{{Info: "packed", Name: "UPX", String: "", Type: "PE32", Version: "3.96"}}
	if err := db.InsertDiecDetectRows(ctx, detectRows, id); err != nil {
		t.Fatalf("InsertDiecDetectRows: %v", err)
	}
	if n, _ := db.SampleRowcountIn(ctx, id, "t_diec"); n != 1 {
		t.Errorf("got %d t_diec rows, want 1", n)
	}

	entropyRows := []parser.DiecEntropyRow{{Entropy: 7.9, Name: ".text", Offset: 0, Size: 512, Status: "packed"}}
	meta := parser.DiecMetaRow{Entropy: 7.5, Status: "packed"}
	if err := db.InsertDiecEntropy(ctx, entropyRows, meta, id); err != nil {
		t.Fatalf("InsertDiecEntropy: %v", err)
	}
	if n, _ := db.SampleRowcountIn(ctx, id, "t_diec_ent"); n != 1 {
		t.Errorf("got %d t_diec_ent rows, want 1", n)
	}
	if n, _ := db.SampleRowcountIn(ctx, id, "t_diec_meta"); n != 1 {
		t.Errorf("got %d t_diec_meta rows, want 1", n)
	}

	path, err := db.SamplePath(ctx, id)
	if err != nil {
		t.Fatalf("SamplePath: %v", err)
	}
	if path != "/corpus/tool.bin" {
		t.Errorf("got path %q, want /corpus/tool.bin", path)
	}
}
