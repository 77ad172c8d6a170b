package envstore

import (
	"context"
	"strings"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/shell"
)

// WindowsStore persists bindings in the Windows registry environment via
// PowerShell's [Environment]::SetEnvironmentVariable.
type WindowsStore struct {
	runner shell.Runner
	env    Env
	target string
}

// NewWindowsStore returns a store for scope. ScopeMachine requires an
// administrator token; ScopeUser does not.
func NewWindowsStore(r shell.Runner, env Env, scope Scope) *WindowsStore {
	target := "User"
	if scope == ScopeMachine {
		target = "Machine"
	}
	return &WindowsStore{runner: r, env: env, target: target}
}

// Location implements Store.
func (s *WindowsStore) Location() string {
	return s.target + " environment"
}

// NeedsElevation implements Privileged. Only the Machine environment requires
// an administrator token.
func (s *WindowsStore) NeedsElevation() bool {
	return s.target == "Machine"
}

// Lookup implements Store. An empty value is reported as absent.
func (s *WindowsStore) Lookup(ctx context.Context, name string) (string, bool, error) {
	res, err := s.powershell(ctx, "[Environment]::GetEnvironmentVariable("+psQuote(name)+", "+psQuote(s.target)+")")
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %s", name)
	}
	v := res.Output()
	return v, v != "", nil
}

// EnsureBinding implements Store.
func (s *WindowsStore) EnsureBinding(ctx context.Context, b Binding) (bool, error) {
	cur, _, err := s.Lookup(ctx, b.Name)
	if err != nil {
		return false, err
	}
	changed := false
	if cur != b.Value {
		if err := s.set(ctx, b.Name, b.Value); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, errors.Wrapf(s.env.Setenv(b.Name, b.Value), "setting %s", b.Name)
}

// EnsurePathEntry implements Store. Windows paths compare case-insensitively.
func (s *WindowsStore) EnsurePathEntry(ctx context.Context, dir string) (bool, error) {
	cur, _, err := s.Lookup(ctx, "Path")
	if err != nil {
		return false, err
	}
	if containsFold(SplitPath(cur, ';'), dir) || containsFold(SplitPath(s.env.Getenv("PATH"), ';'), dir) {
		return false, nil
	}

	next := dir
	if cur != "" {
		next = strings.TrimSuffix(cur, ";") + ";" + dir
	}
	if err := s.set(ctx, "Path", next); err != nil {
		return false, err
	}
	return true, errors.Wrap(appendLivePath(s.env, dir, ';'), "updating PATH")
}

// PathEntries implements Store.
func (s *WindowsStore) PathEntries(ctx context.Context) ([]string, error) {
	cur, _, err := s.Lookup(ctx, "Path")
	if err != nil {
		return nil, err
	}
	return SplitPath(cur, ';'), nil
}

func (s *WindowsStore) set(ctx context.Context, name, value string) error {
	_, err := s.powershell(ctx, "[Environment]::SetEnvironmentVariable("+psQuote(name)+", "+psQuote(value)+", "+psQuote(s.target)+")")
	return errors.Wrapf(err, "persisting %s", name)
}

func (s *WindowsStore) powershell(ctx context.Context, script string) (shell.Result, error) {
	return s.runner.Run(ctx, shell.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script))
}

// psQuote renders a PowerShell single-quoted literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSuffix(v, `\`), strings.TrimSuffix(s, `\`)) {
			return true
		}
	}
	return false
}
