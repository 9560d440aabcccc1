// Package deps resolves the external decoder binaries (ffmpeg-compatible
// decode and probe processes) engram shells out to, either at a configured
// path or on PATH.
package deps

import (
	"fmt"
	"os/exec"
)

// Resolve returns an absolute, executable path for a binary. If configured
// is non-empty it is looked up directly (accepting either an absolute path
// or a bare command resolved via PATH); otherwise command is resolved from
// PATH under its own name.
func Resolve(configured, command string) (string, error) {
	if configured != "" {
		resolved, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("resolve configured binary %q: %w", configured, err)
		}
		return resolved, nil
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("resolve %q on PATH: %w", command, err)
	}
	return resolved, nil
}

// Status reports the availability of a single external binary, for
// diagnostic commands ("engram config show" style output).
type Status struct {
	Name      string
	Command   string
	Available bool
	Detail    string
}

// Check resolves a binary and reports its status without returning an error,
// so a caller can report on several dependencies at once.
func Check(name, configured, command string) Status {
	resolved, err := Resolve(configured, command)
	if err != nil {
		return Status{Name: name, Command: command, Available: false, Detail: err.Error()}
	}
	return Status{Name: name, Command: resolved, Available: true}
}
