package toolchain

import (
	"context"
	"os/exec"
)

// Runner groups the parsed specs of a configured toolchain and holds no
// other state. The worker and verifier do not use it: they call Invoke (via
// internal/toolrun) once per spec.
type Runner struct {
	Specs []Spec
}

// NewRunner builds a Runner from already-parsed specifications.
func NewRunner(specs []Spec) *Runner {
	return &Runner{Specs: specs}
}

// Invoke runs one tool spec against a sample path and returns its stdout.
//
// Stdin is not wired to the child; stdout is captured and decoded as UTF-8;
// stderr is discarded. A non-zero exit does not produce an error: the
// contract (spec.md §4.3) is that the parser tolerates empty or partial
// output, so the caller always gets to try parsing whatever stdout it got.
func Invoke(ctx context.Context, spec Spec, samplePath string) ([]byte, error) {
	argv := make([]string, 0, len(spec.Args)+1)
	argv = append(argv, spec.Args...)
	argv = append(argv, samplePath)

	cmd := exec.CommandContext(ctx, spec.Exe, argv...)
	cmd.Stdin = nil

	out, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Non-zero exit: not fatal, stdout (possibly empty) still returned.
			return out, nil
		}
		// Could not even start the process (binary missing, etc.) — this is
		// the one case worth surfacing, so the caller can skip the tool.
		return nil, err
	}
	return out, nil
}
