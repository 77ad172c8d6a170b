package pkgmgr

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// DnfManager drives Fedora-family hosts. dnf refreshes metadata itself.
type DnfManager struct {
	base
}

// NewDnf returns a dnf strategy.
func NewDnf(r shell.Runner) *DnfManager {
	return &DnfManager{base{runner: r}}
}

func (m *DnfManager) Name() string { return Dnf }
func (m *DnfManager) NeedsRefresh() bool { return false }
func (m *DnfManager) NeedsElevation() bool { return true }
func (m *DnfManager) Refresh(ctx context.Context) error { return nil }

func (m *DnfManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	ok, err := m.succeeds(ctx, shell.Command("rpm", "-q", "--whatprovides", pkg))
	return ok, errors.Wrapf(err, "querying %s", pkg)
}

func (m *DnfManager) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	c := shell.Command("dnf", append([]string{"install", "-y"}, pkgs...)...)
	return errors.Wrapf(m.runElevated(ctx, c), "installing %d packages", len(pkgs))
}
