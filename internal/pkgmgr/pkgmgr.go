package pkgmgr

import (
	"context"

	"github.com/thoreinstein/provision/internal/shell"
)

// Manager names.
const (
	Apt    = "apt"
	Dnf    = "dnf"
	Pacman = "pacman"
	Brew   = "brew"
	Winget = "winget"

	// None disables package-manager-backed installs.
	None = "none"
)

// Manager is a system package manager strategy. Implementations are
// selected once per run and held fixed.
type Manager interface {
	// Name returns the manager identifier (apt, dnf, ...).
	Name() string

	// IsInstalled reports whether pkg is installed according to the
	// manager's own database.
	IsInstalled(ctx context.Context, pkg string) (bool, error)

	// Install installs every package in pkgs with a single invocation.
	Install(ctx context.Context, pkgs []string) error

	// NeedsRefresh reports whether the package index must be refreshed
	// before the first install of a run.
	NeedsRefresh() bool

	// Refresh updates the package index.
	Refresh(ctx context.Context) error

	// NeedsElevation reports whether installs require root.
	NeedsElevation() bool

	// SetPrefix sets the elevation prefix used for privileged commands.
	SetPrefix(prefix []string)
}

// base carries what every strategy shares.
type base struct {
	runner shell.Runner
	prefix []string
}

func (b *base) SetPrefix(prefix []string) {
	b.prefix = prefix
}

func (b *base) run(ctx context.Context, c shell.Cmd) (shell.Result, error) {
	return b.runner.Run(ctx, c)
}

func (b *base) runElevated(ctx context.Context, c shell.Cmd) error {
	c.Stream = true
	_, err := b.runner.Run(ctx, shell.WithPrefix(b.prefix, c))
	return err
}

// succeeds reports whether c exits zero. A CommandError is a "no";
// any other error is returned.
func (b *base) succeeds(ctx context.Context, c shell.Cmd) (bool, error) {
	_, err := b.runner.Run(ctx, c)
	if err == nil {
		return true, nil
	}
	if isExit(err) {
		return false, nil
	}
	return false, err
}

// Missing returns the subset of pkgs that m reports as not installed,
// preserving order and dropping duplicates.
func Missing(ctx context.Context, m Manager, pkgs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(pkgs))
	var missing []string
	for _, p := range pkgs {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		ok, err := m.IsInstalled(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}
