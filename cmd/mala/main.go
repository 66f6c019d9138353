package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "mala",
		Short:   "Ingest malware samples into MalaDB",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newIngestCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// newLogger opens mala.log and returns a slog.Logger writing to it, mirroring
// the Python original's logging.basicConfig(filename='mala.log', ...).
// Falls back to stderr if the file cannot be opened, so a permissions
// problem surfaces as log noise rather than a silent no-op logger.
func newLogger() *slog.Logger {
	f, err := os.OpenFile("mala.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open mala.log: %v\n", err)
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(f, nil))
}
