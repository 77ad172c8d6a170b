package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/logging"
)

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive streamed output. Defaults to os.Stderr for
	// both so that command output never mixes with machine-readable stdout.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner streaming to stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stderr, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	logger := logging.FromContext(ctx)
	logger.Log(ctx, logging.LevelTrace, "exec", "cmd", c.Line(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stream {
		cmd.Stdout = io.MultiWriter(&stdout, r.out())
		cmd.Stderr = io.MultiWriter(&stderr, r.errOut())
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &CommandError{Line: c.Line(), ExitCode: res.ExitCode, Stderr: stderr.String()}
	}
	if ctx.Err() != nil {
		return res, errors.Wrapf(ctx.Err(), "running %s", c.Name)
	}
	return res, errors.Wrapf(err, "running %s", c.Name)
}

// LookPath implements Runner. It consults the live PATH so that entries
// added earlier in the run are visible.
func (r *ExecRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrap(ErrNotFound, name)
	}
	return p, nil
}

func (r *ExecRunner) out() io.Writer {
	if r.Stdout == nil {
		return os.Stderr
	}
	return r.Stdout
}

func (r *ExecRunner) errOut() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}
