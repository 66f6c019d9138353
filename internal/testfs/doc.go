// Package testfs provides a minimal Docker container wrapper used by the
// e2e-tagged integration tests in internal/store to stand up a disposable
// Postgres instance and exec commands against it.
package testfs
