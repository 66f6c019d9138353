// Package store is the Postgres persistence layer (C5): one connection per
// worker, autocommit, exposing every operation spec.md §4.5 names plus the
// deadlock-tolerant batched string insertion protocol of §4.5's last
// paragraph.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/jsharp6968/mala/internal/parser"
	"github.com/jsharp6968/mala/internal/types"
)

// DB wraps a single pinned connection. A worker goroutine owns exactly one
// DB for its lifetime; DB is not safe for concurrent use by multiple
// goroutines, matching the one-connection-per-worker model spec.md §5
// requires (the contention point, the strings table, is resolved at the SQL
// level via ON CONFLICT, not by serializing Go-side access).
type DB struct {
	conn *sql.Conn
	pool *sql.DB
}

// Open connects to Postgres and pins a single connection from the pool,
// matching the one-connection-per-worker, autocommit model spec.md §4.5
// requires. The caller owns the returned DB's lifetime and must call Close.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	conn, err := pool.Conn(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("store: acquire connection: %w", err)
	}

	return &DB{conn: conn, pool: pool}, nil
}

// Close releases the pinned connection and closes the underlying pool.
func (d *DB) Close() error {
	err := d.conn.Close()
	if cerr := d.pool.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// LookupSampleBySHA256 returns the sample id for a known SHA-256, or
// (0, false, nil) if no such sample exists.
func (d *DB) LookupSampleBySHA256(ctx context.Context, sha256 string) (int64, bool, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx,
		`SELECT id FROM t_file WHERE sha256 = $1`, sha256,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: lookup sample: %w", err)
	}
	return id, true, nil
}

// InsertSample inserts a new sample row and returns its id. Fails if the
// SHA-256 already exists; the caller is expected to have already checked via
// LookupSampleBySHA256.
func (d *DB) InsertSample(ctx context.Context, s types.Sample) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx,
		`INSERT INTO t_file (md5, sha1, sha256, basename, path, fsize)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.MD5, s.SHA1, s.SHA256, s.Basename, s.Path, s.Size,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert sample: %w", err)
	}
	return id, nil
}

// SearchPackage returns packages whose basename matches, used to decide
// whether an archive has already been ingested.
func (d *DB) SearchPackage(ctx context.Context, basename string) ([]types.Package, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, md5, basename, path, fsize, date_ingested, fcount
		 FROM t_package WHERE basename = $1`, basename,
	)
	if err != nil {
		return nil, fmt.Errorf("store: search package: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pkgs []types.Package
	for rows.Next() {
		var p types.Package
		if err := rows.Scan(&p.ID, &p.MD5, &p.Basename, &p.Path, &p.Size, &p.DateIngested, &p.DeclaredCount); err != nil {
			return nil, fmt.Errorf("store: scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

// PackageSampleCount counts samples whose path contains "/<name>/", the
// heuristic used to check an archive's contents are already fully ingested
// (spec.md §3's 90%-known-ratio check consumes this).
func (d *DB) PackageSampleCount(ctx context.Context, strippedBasename string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM t_file WHERE path LIKE '%/' || $1 || '/%'`, strippedBasename,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: package sample count: %w", err)
	}
	return n, nil
}

// InsertPackage inserts a new package row and returns its id.
func (d *DB) InsertPackage(ctx context.Context, p types.Package) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx,
		`INSERT INTO t_package (md5, basename, path, fsize, date_ingested, fcount)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.MD5, p.Basename, p.Path, p.Size, p.DateIngested, p.DeclaredCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert package: %w", err)
	}
	return id, nil
}

// InsertExecution inserts a new execution row and returns its id.
func (d *DB) InsertExecution(ctx context.Context, e types.Execution) (int64, error) {
	var id int64
	err := d.conn.QueryRowContext(ctx,
		`INSERT INTO t_executions
		 (exec_uuid, cmdline, fcount, start_time, finish_time, toolchain,
		  thread_limit, shr_cutoff, fcount_sanity, handled_count, verified_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		e.UUID, e.CmdLine, e.FileCount, e.StartTime, e.FinishTime, e.Toolchain,
		e.WorkerCount, e.ShrCutoff, e.SanityCount, e.HandledCount, e.VerifiedCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert execution: %w", err)
	}
	return id, nil
}

// LinkSampleToExecution records that a sample was processed as part of an
// execution.
func (d *DB) LinkSampleToExecution(ctx context.Context, sampleID, executionID int64) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO t_file_ingest (id_file, id_execution) VALUES ($1, $2)`,
		sampleID, executionID,
	)
	if err != nil {
		return fmt.Errorf("store: link sample to execution: %w", err)
	}
	return nil
}

// InsertExif persists exiftool tag/content pairs for a sample.
func (d *DB) InsertExif(ctx context.Context, rows []parser.ExifRow, sampleID int64) error {
	for _, r := range rows {
		_, err := d.conn.ExecContext(ctx,
			`INSERT INTO t_exiftool (id_file, tag, content) VALUES ($1, $2, $3)`,
			sampleID, r.Tag, r.Content,
		)
		if err != nil {
			return fmt.Errorf("store: insert exif: %w", err)
		}
	}
	return nil
}

// InsertTLSH persists a sample's TLSH digest.
func (d *DB) InsertTLSH(ctx context.Context, hash string, sampleID int64) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO t_tlsh (id_file, tlsh_hash) VALUES ($1, $2)`, sampleID, hash,
	)
	if err != nil {
		return fmt.Errorf("store: insert tlsh: %w", err)
	}
	return nil
}

// InsertSSDeep persists a sample's ssdeep hash.
func (d *DB) InsertSSDeep(ctx context.Context, hash string, sampleID int64) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO t_ssdeep (id_file, ssdeep_hash) VALUES ($1, $2)`, sampleID, hash,
	)
	if err != nil {
		return fmt.Errorf("store: insert ssdeep: %w", err)
	}
	return nil
}

// InsertDiecDetectRows persists diec "detect"/"broken" rows for a sample.
func (d *DB) InsertDiecDetectRows(ctx context.Context, rows []parser.DiecDetectRow, sampleID int64) error {
	for _, r := range rows {
		_, err := d.conn.ExecContext(ctx,
			`INSERT INTO t_diec (id_file, info, name, string, type, version)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sampleID, r.Info, r.Name, r.String, r.Type, r.Version,
		)
		if err != nil {
			return fmt.Errorf("store: insert diec detect row: %w", err)
		}
	}
	return nil
}

// InsertDiecEntropy persists diec per-section entropy rows plus the
// whole-file meta row for a sample.
func (d *DB) InsertDiecEntropy(ctx context.Context, records []parser.DiecEntropyRow, meta parser.DiecMetaRow, sampleID int64) error {
	for _, r := range records {
		_, err := d.conn.ExecContext(ctx,
			`INSERT INTO t_diec_ent (id_file, entropy, name, s_offset, size, status)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sampleID, r.Entropy, r.Name, r.Offset, r.Size, r.Status,
		)
		if err != nil {
			return fmt.Errorf("store: insert diec entropy row: %w", err)
		}
	}

	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO t_diec_meta (id_file, entropy, status) VALUES ($1, $2, $3)`,
		sampleID, meta.Entropy, meta.Status,
	)
	if err != nil {
		return fmt.Errorf("store: insert diec meta row: %w", err)
	}
	return nil
}

// SampleRowcountIn counts rows in table belonging to sampleID, used by the
// verifier to detect missing tool output.
func (d *DB) SampleRowcountIn(ctx context.Context, sampleID int64, table string) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE id_file = $1`, quoteIdent(table))
	if err := d.conn.QueryRowContext(ctx, query, sampleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: rowcount in %s: %w", table, err)
	}
	return n, nil
}

// SamplePath returns the on-disk path recorded for a sample.
func (d *DB) SamplePath(ctx context.Context, sampleID int64) (string, error) {
	var path string
	err := d.conn.QueryRowContext(ctx,
		`SELECT path FROM t_file WHERE id = $1`, sampleID,
	).Scan(&path)
	if err != nil {
		return "", fmt.Errorf("store: sample path: %w", err)
	}
	return path, nil
}

// quoteIdent double-quotes a Postgres identifier. table names reaching here
// come only from toolchain.Tables, a closed compile-time list, never from
// user input.
func quoteIdent(ident string) string {
	return `"` + ident + `"`
}
