package shell

import (
	"context"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// Handler answers a command run through a FakeRunner.
type Handler func(c Cmd) (Result, error)

type route struct {
	prefix  string
	handler Handler
}

// FakeRunner is an in-memory Runner for tests. Commands are matched by
// the prefix of their Line; the most recently registered match wins.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	// Bins maps a binary name to its resolved path.
	Bins map[string]string

	// Calls records every command in order.
	Calls []Cmd

	routes []route
}

// NewFakeRunner returns a FakeRunner with the given binaries on its
// search path under /usr/bin.
func NewFakeRunner(bins ...string) *FakeRunner {
	f := &FakeRunner{Bins: make(map[string]string)}
	for _, b := range bins {
		f.AddBin(b, "")
	}
	return f
}

// AddBin puts name on the fake search path. An empty dir defaults to /usr/bin.
func (f *FakeRunner) AddBin(name, dir string) {
	if dir == "" {
		dir = "/usr/bin"
	}
	f.Bins[name] = path.Join(dir, name)
}

// RemoveBin takes name off the fake search path.
func (f *FakeRunner) RemoveBin(name string) {
	delete(f.Bins, name)
}

// On registers h for commands whose Line starts with prefix.
func (f *FakeRunner) On(prefix string, h Handler) {
	f.routes = append(f.routes, route{prefix: prefix, handler: h})
}

// Reply registers a handler that returns stdout and succeeds.
func (f *FakeRunner) Reply(prefix, stdout string) {
	f.On(prefix, func(Cmd) (Result, error) {
		return Result{Stdout: []byte(stdout)}, nil
	})
}

// Fail registers a handler that exits with code and stderr.
func (f *FakeRunner) Fail(prefix string, code int, stderr string) {
	f.On(prefix, func(c Cmd) (Result, error) {
		return Result{Stderr: []byte(stderr), ExitCode: code},
			&CommandError{Line: c.Line(), ExitCode: code, Stderr: stderr}
	})
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrapf(err, "running %s", c.Name)
	}
	f.Calls = append(f.Calls, c)
	line := c.Line()
	for i := len(f.routes) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.routes[i].prefix) {
			return f.routes[i].handler(c)
		}
	}
	return Result{}, nil
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.Bins[name]; ok {
		return p, nil
	}
	return "", errors.Wrap(ErrNotFound, name)
}

// Count returns how many recorded calls start with prefix.
func (f *FakeRunner) Count(prefix string) int {
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c.Line(), prefix) {
			n++
		}
	}
	return n
}

// Lines returns every recorded call as a Line.
func (f *FakeRunner) Lines() []string {
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.Line()
	}
	return out
}
