// SPDX-License-Identifier: MPL-2.0

package npm

import (
	"fmt"
	"strings"
)

// CommandError is returned when an npm command exits unsuccessfully.
type CommandError struct {
	Binary string
	Args   []string
	// ExitCode is -1 when the process could not be started or was killed.
	ExitCode int
	Stderr   string
	Err      error
}

// Error formats the command line, exit code and the last stderr line.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Binary, strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		lines := strings.Split(e.Stderr, "\n")
		msg += ": " + strings.TrimSpace(lines[len(lines)-1])
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error { return e.Err }
