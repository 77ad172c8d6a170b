// Package elevate resolves how privileged package installs are run.
package elevate

import (
	"context"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

// Method names the mechanism selected for privileged commands.
type Method string

const (
	// MethodRoot means the process already runs as root; no prefix.
	MethodRoot Method = "root"
	// MethodAdmin means a Windows administrator token; no prefix.
	MethodAdmin Method = "admin"
	// MethodSudo prefixes commands with sudo.
	MethodSudo Method = "sudo"
	// MethodDoas prefixes commands with doas.
	MethodDoas Method = "doas"
)

// Elevation is the resolved mechanism.
type Elevation struct {
	Method Method
	Prefix []string
}

// Wrap applies the elevation prefix to c.
func (e *Elevation) Wrap(c shell.Cmd) shell.Cmd {
	if e == nil {
		return c
	}
	return shell.WithPrefix(e.Prefix, c)
}

// candidates are tried in order on Unix hosts.
var candidates = []Method{MethodSudo, MethodDoas}

// Resolve picks an elevation mechanism for host.
// Returns errors.ErrNoElevation when none is available.
func Resolve(ctx context.Context, host *platform.Host, r shell.Runner) (*Elevation, error) {
	if host.OS == platform.Windows {
		if IsWindowsAdmin(ctx, r) {
			return &Elevation{Method: MethodAdmin}, nil
		}
		return nil, errors.NewExitErrorWithSuggestion(
			errors.Wrap(errors.ErrNoElevation, "not running as administrator"),
			errors.ExitUser,
			"re-run from an elevated PowerShell",
		)
	}

	if host.Root {
		return &Elevation{Method: MethodRoot}, nil
	}

	for _, m := range candidates {
		if shell.Has(r, string(m)) {
			return &Elevation{Method: m, Prefix: []string{string(m)}}, nil
		}
	}

	return nil, errors.NewExitErrorWithSuggestion(
		errors.Wrap(errors.ErrNoElevation, "neither sudo nor doas found"),
		errors.ExitUser,
		"re-run as root or install sudo",
	)
}

// IsWindowsAdmin reports whether the process holds an administrator token.
// `net session` only succeeds for elevated processes.
func IsWindowsAdmin(ctx context.Context, r shell.Runner) bool {
	_, err := r.Run(ctx, shell.Command("net", "session"))
	return err == nil
}
