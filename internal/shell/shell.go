// Package shell runs external commands on behalf of the provisioner.
//
// Every package manager, SDK manager and toolchain is driven through the
// [Runner] interface so that steps can be exercised against a [FakeRunner]
// without touching the host.
package shell

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by LookPath when a binary is not on the search path.
var ErrNotFound = errors.New("executable not found")

// Cmd describes one external command invocation.
type Cmd struct {
	// Name is the program to run, resolved against PATH.
	Name string

	// Args are passed verbatim.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries (KEY=value) are appended to the process environment.
	Env []string

	// Stdin is written to the command's standard input.
	Stdin string

	// Stream forwards output to the runner's writers as it is produced
	// instead of only capturing it. Used for long installs.
	Stream bool
}

// Line returns the command as a single space-joined string, for logs and matching.
func (c Cmd) Line() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Command is shorthand for Cmd{Name: name, Args: args}.
func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// WithPrefix returns c run through an elevation prefix such as ["sudo"].
// An empty prefix returns c unchanged.
func WithPrefix(prefix []string, c Cmd) Cmd {
	if len(prefix) == 0 {
		return c
	}
	out := c
	out.Name = prefix[0]
	out.Args = append(append(append([]string{}, prefix[1:]...), c.Name), c.Args...)
	return out
}

// Result is the outcome of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Output returns trimmed stdout.
func (r Result) Output() string {
	return strings.TrimSpace(string(r.Stdout))
}

// Runner executes commands and locates binaries.
type Runner interface {
	// Run executes c and waits for it to finish. A non-zero exit status is
	// returned as a *CommandError alongside the populated Result.
	Run(ctx context.Context, c Cmd) (Result, error)

	// LookPath resolves name against the current search path.
	// Returns ErrNotFound when absent.
	LookPath(name string) (string, error)
}

// CommandError reports a command that ran but exited non-zero.
type CommandError struct {
	Line     string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := e.Line + ": exit status " + strconv.Itoa(e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Has reports whether name is on the search path.
func Has(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
