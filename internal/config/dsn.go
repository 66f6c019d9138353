package config

import (
	"fmt"
	"os"
)

// Postgres connection defaults, mirroring original_source/constants.py
// (DB_NAME, DB_HOST, DB_PORT, DB_USER). DB_HOST is a unix socket directory,
// not a TCP host — lib/pq accepts that in its "host" parameter verbatim.
const (
	dbName = "mala"
	dbHost = "/var/run/postgresql"
	dbPort = 5432
	dbUser = "mala_user"

	// DBPassEnv is the environment variable supplying the database
	// password (spec.md §6).
	DBPassEnv = "MALA_DB_PASS"
)

// BuildDSN assembles a lib/pq connection string from the fixed constants.py
// connection parameters plus MALA_DB_PASS. Returns an error if the
// environment variable is unset, since an empty password is never the
// intended deployment state for this corpus.
func BuildDSN() (string, error) {
	pass := os.Getenv(DBPassEnv)
	if pass == "" {
		return "", fmt.Errorf("config: %s is not set", DBPassEnv)
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		dbHost, dbPort, dbName, dbUser, pass), nil
}
