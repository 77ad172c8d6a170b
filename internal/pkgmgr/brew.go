package pkgmgr

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// CaskPrefix marks a Homebrew package identifier as a cask ("cask:visual-studio-code").
const CaskPrefix = "cask:"

// BrewManager drives Homebrew on darwin. It never needs root.
type BrewManager struct {
	base
}

// NewBrew returns a Homebrew strategy.
func NewBrew(r shell.Runner) *BrewManager {
	return &BrewManager{base{runner: r}}
}

func (m *BrewManager) Name() string { return Brew }
func (m *BrewManager) NeedsRefresh() bool { return false }
func (m *BrewManager) NeedsElevation() bool { return false }
func (m *BrewManager) Refresh(ctx context.Context) error { return nil }

func (m *BrewManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	kind, name := splitCask(pkg)
	ok, err := m.succeeds(ctx, shell.Command("brew", "list", kind, name))
	return ok, errors.Wrapf(err, "querying %s", pkg)
}

// Install runs one brew invocation for formulae and one for casks.
func (m *BrewManager) Install(ctx context.Context, pkgs []string) error {
	var formulae, casks []string
	for _, p := range pkgs {
		if kind, name := splitCask(p); kind == "--cask" {
			casks = append(casks, name)
		} else {
			formulae = append(formulae, name)
		}
	}
	if len(formulae) > 0 {
		if err := m.runElevated(ctx, shell.Command("brew", append([]string{"install"}, formulae...)...)); err != nil {
			return errors.Wrapf(err, "installing %d formulae", len(formulae))
		}
	}
	if len(casks) > 0 {
		if err := m.runElevated(ctx, shell.Command("brew", append([]string{"install", "--cask"}, casks...)...)); err != nil {
			return errors.Wrapf(err, "installing %d casks", len(casks))
		}
	}
	return nil
}

func splitCask(pkg string) (kind, name string) {
	if name, ok := strings.CutPrefix(pkg, CaskPrefix); ok {
		return "--cask", name
	}
	return "--formula", pkg
}
