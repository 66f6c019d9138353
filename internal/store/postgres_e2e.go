//go:build e2e

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/jsharp6968/mala/internal/testfs"
)

// pgImage is the Postgres image started for e2e tests.
const pgImage = "postgres:16"

// pgHostPort is the fixed host port the container's 5432 is published on.
// Fixed rather than dynamically allocated since testfs.Container exposes no
// inspect call to recover a docker-assigned port; tests that need this file
// must run exclusively (not in parallel with another instance of the suite).
const pgHostPort = "55432"

// schemaSQL creates every table and stored procedure spec.md §6 names. It is
// the authoritative schema (matching store.go's table names exactly), not a
// translation of original_source/create_db.py, which mis-targets
// t_stringinstance/t_diec_ent for several of these tables.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS t_file (
	id bigserial PRIMARY KEY,
	md5 CHAR(32),
	sha256 CHAR(64) UNIQUE,
	sha1 CHAR(40),
	basename text,
	path text,
	fsize integer
);
CREATE TABLE IF NOT EXISTS t_package (
	id bigserial PRIMARY KEY,
	md5 CHAR(32) UNIQUE,
	basename text,
	path text,
	fsize bigint,
	date_ingested timestamp without time zone,
	fcount integer
);
CREATE TABLE IF NOT EXISTS t_file_ingest (
	id bigserial PRIMARY KEY,
	id_file bigint,
	id_execution bigint
);
CREATE TABLE IF NOT EXISTS t_executions (
	id bigserial PRIMARY KEY,
	exec_uuid CHAR(36) UNIQUE,
	cmdline text,
	fcount integer,
	start_time timestamp without time zone,
	finish_time timestamp without time zone,
	toolchain text,
	thread_limit integer,
	shr_cutoff integer,
	fcount_sanity integer,
	handled_count integer,
	verified_count integer
);
CREATE TABLE IF NOT EXISTS t_strings (
	id bigserial PRIMARY KEY,
	value text UNIQUE,
	score integer
);
CREATE TABLE IF NOT EXISTS t_stringinstance (
	id bigserial PRIMARY KEY,
	id_file bigint,
	id_string bigint,
	address integer
);
CREATE TABLE IF NOT EXISTS t_exiftool (
	id bigserial PRIMARY KEY,
	id_file bigint,
	tag text,
	content text
);
CREATE TABLE IF NOT EXISTS t_tlsh (
	id bigserial PRIMARY KEY,
	id_file bigint,
	tlsh_hash varchar(72)
);
CREATE TABLE IF NOT EXISTS t_ssdeep (
	id bigserial PRIMARY KEY,
	id_file bigint,
	ssdeep_hash varchar(1480)
);
CREATE TABLE IF NOT EXISTS t_diec (
	id bigserial PRIMARY KEY,
	id_file bigint,
	info text,
	name text,
	string text,
	type text,
	version text
);
CREATE TABLE IF NOT EXISTS t_diec_ent (
	id bigserial PRIMARY KEY,
	id_file bigint,
	entropy decimal(10, 8),
	name text,
	s_offset bigint,
	size bigint,
	status text
);
CREATE TABLE IF NOT EXISTS t_diec_meta (
	id bigserial PRIMARY KEY,
	id_file bigint,
	entropy decimal(10, 8),
	status text
);

CREATE OR REPLACE PROCEDURE insert_strings(arr_strings TEXT[], arr_scores INTEGER[])
LANGUAGE plpgsql AS $$
BEGIN
	INSERT INTO t_strings (value, score)
	SELECT unnest(arr_strings), unnest(arr_scores)
	ON CONFLICT (value) DO NOTHING;
END;
$$;

CREATE OR REPLACE PROCEDURE insert_string_instances(arr_strings TEXT[], file_id_val BIGINT, arr_addresses INTEGER[])
LANGUAGE plpgsql AS $$
BEGIN
	INSERT INTO t_stringinstance (id_string, id_file, address)
	SELECT t.id, file_id_val, a.address
	FROM unnest(arr_strings) WITH ORDINALITY AS v(value, ord)
	JOIN t_strings t ON t.value = v.value
	JOIN unnest(arr_addresses) WITH ORDINALITY AS a(address, ord) ON v.ord = a.ord;
END;
$$;
`

// startPostgres starts a disposable Postgres container, loads schemaSQL into
// it, and returns a DSN the test's *sql.DB can connect to over the published
// host port. The caller must call the returned cleanup func.
func startPostgres(ctx context.Context) (dsn string, cleanup func(), err error) {
	portSpec := nat.Port("5432/tcp")
	cfg := &container.Config{
		Image: pgImage,
		Env:   []string{"POSTGRES_PASSWORD=postgres", "POSTGRES_DB=postgres"},
		ExposedPorts: nat.PortSet{
			portSpec: struct{}{},
		},
	}
	hostCfg := &container.HostConfig{
		AutoRemove: true,
		PortBindings: nat.PortMap{
			portSpec: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: pgHostPort}},
		},
	}

	c, err := testfs.NewContainer(ctx, cfg, hostCfg)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}
	cleanup = func() { _ = c.Close(ctx) }

	if err := waitForReady(ctx, c); err != nil {
		cleanup()
		return "", nil, err
	}

	if err := loadSchema(ctx, c); err != nil {
		cleanup()
		return "", nil, err
	}

	dsn = fmt.Sprintf("host=127.0.0.1 port=%s dbname=postgres user=postgres password=postgres sslmode=disable", pgHostPort)
	return dsn, cleanup, nil
}

func waitForReady(ctx context.Context, c *testfs.Container) error {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		_, _, exitCode, err := c.Run(ctx, []string{"pg_isready", "-U", "postgres"}, nil)
		if err == nil && exitCode == 0 {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("postgres container did not become ready in time")
}

func loadSchema(ctx context.Context, c *testfs.Container) error {
	stdout, stderr, exitCode, err := c.Run(ctx,
		[]string{"psql", "-U", "postgres", "-d", "postgres", "-v", "ON_ERROR_STOP=1", "-c", schemaSQL}, nil)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("load schema failed (exit %d): %s%s", exitCode, stdout, stderr)
	}
	return nil
}
