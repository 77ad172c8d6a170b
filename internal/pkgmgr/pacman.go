package pkgmgr

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// PacmanManager drives Arch-family hosts.
type PacmanManager struct {
	base
}

// NewPacman returns a pacman strategy.
func NewPacman(r shell.Runner) *PacmanManager {
	return &PacmanManager{base{runner: r}}
}

func (m *PacmanManager) Name() string { return Pacman }
func (m *PacmanManager) NeedsRefresh() bool { return false }
func (m *PacmanManager) NeedsElevation() bool { return true }

func (m *PacmanManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	ok, err := m.succeeds(ctx, shell.Command("pacman", "-Q", pkg))
	return ok, errors.Wrapf(err, "querying %s", pkg)
}

// Refresh is a no-op. Install syncs the databases itself since a bare -Sy
// followed by -S is a partial upgrade, which Arch does not support.
func (m *PacmanManager) Refresh(ctx context.Context) error { return nil }

func (m *PacmanManager) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	c := shell.Command("pacman", append([]string{"-Syu", "--needed", "--noconfirm"}, pkgs...)...)
	return errors.Wrapf(m.runElevated(ctx, c), "installing %d packages", len(pkgs))
}
