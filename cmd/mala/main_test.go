package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoggerWritesToMalaLog(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	log := newLogger()
	log.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "mala.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected mala.log to contain the logged line")
	}
}

func TestRunRejectsUnknownSubcommand(t *testing.T) {
	os.Args = []string{"mala", "bogus-subcommand"}
	if code := run(); code != 1 {
		t.Errorf("got exit code %d, want 1", code)
	}
}
