package store

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lib/pq"

	"github.com/jsharp6968/mala/internal/parser"
)

// StringChunkSize is the batch size for insert_strings calls (spec.md §4.5).
const StringChunkSize = 256

// MaxStringInsertRetries bounds the otherwise-indefinite retry the spec
// describes for insert_strings (DESIGN.md Open Question (d)): the operation
// is idempotent, so retrying is always safe, but an unbounded retry loop
// would wedge a worker goroutine forever under pathological contention.
const MaxStringInsertRetries = 20

// minRetryDelay and maxRetryDelay bound the jittered sleep between retries
// of a failed insert_strings chunk (spec.md §4.5: "uniformly in [0.2, 0.9]
// seconds").
const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 900 * time.Millisecond
)

// InsertStrings persists every extracted string and its offset for a
// sample, using the two-stored-procedure protocol spec.md §4.5 describes:
//
//  1. values[] is split into chunks of StringChunkSize. Each chunk is sent to
//     insert_strings(values, scores), which conflict-skips on value and is
//     therefore safe to retry; failures retry the same chunk with jittered
//     sleep, up to MaxStringInsertRetries times.
//  2. Once every chunk has succeeded, a single unretried call to
//     insert_string_instances joins values[] against the strings table and
//     inserts one StringInstance row per element, preserving ordinal
//     correspondence between values, offsets, and this sample.
func (d *DB) InsertStrings(ctx context.Context, log *slog.Logger, rows []parser.StringRow, sampleID int64) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([]string, len(rows))
	scores := make([]int64, len(rows))
	offsets := make([]int64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
		scores[i] = int64(r.Score)
		offsets[i] = r.Offset
	}

	for _, b := range chunkBounds(len(values), StringChunkSize) {
		if err := d.insertStringsChunk(ctx, log, values[b.start:b.end], scores[b.start:b.end]); err != nil {
			return fmt.Errorf("store: insert strings chunk [%d:%d]: %w", b.start, b.end, err)
		}
	}

	if err := d.insertStringInstances(ctx, values, offsets, sampleID); err != nil {
		// Not retried per spec.md §4.5/§9(c): logged, sample otherwise complete.
		log.Error("insert_string_instances failed", "sample_id", sampleID, "error", err)
		return err
	}
	return nil
}

func (d *DB) insertStringsChunk(ctx context.Context, log *slog.Logger, values []string, scores []int64) error {
	var lastErr error
	for attempt := 0; attempt < MaxStringInsertRetries; attempt++ {
		_, err := d.conn.ExecContext(ctx,
			`CALL insert_strings($1, $2)`, pq.Array(values), pq.Array(scores),
		)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("insert_strings attempt failed, retrying", "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitteredDelay()):
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", MaxStringInsertRetries, lastErr)
}

func (d *DB) insertStringInstances(ctx context.Context, values []string, offsets []int64, sampleID int64) error {
	_, err := d.conn.ExecContext(ctx,
		`CALL insert_string_instances($1, $2, $3)`,
		pq.Array(values), sampleID, pq.Array(offsets),
	)
	return err
}

func jitteredDelay() time.Duration {
	span := maxRetryDelay - minRetryDelay
	return minRetryDelay + time.Duration(rand.Int63n(int64(span)))
}

type bounds struct{ start, end int }

// chunkBounds splits a slice of length n into consecutive [start,end) ranges
// of at most size elements each. Pulled out as a pure function so the
// splitting logic is testable without a database connection.
func chunkBounds(n, size int) []bounds {
	if n == 0 {
		return nil
	}
	var out []bounds
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, bounds{start, end})
	}
	return out
}
