package pkgmgr

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// WingetManager drives the Windows package manager in user scope.
type WingetManager struct {
	base
}

// NewWinget returns a winget strategy.
func NewWinget(r shell.Runner) *WingetManager {
	return &WingetManager{base{runner: r}}
}

func (m *WingetManager) Name() string { return Winget }
func (m *WingetManager) NeedsRefresh() bool { return false }
func (m *WingetManager) NeedsElevation() bool { return false }
func (m *WingetManager) Refresh(ctx context.Context) error { return nil }

// IsInstalled checks `winget list --exact --id`. winget exits non-zero when
// nothing matches; the id is also required in the output as some versions
// exit zero with "No installed package found".
func (m *WingetManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	res, err := m.run(ctx, shell.Command("winget", "list", "--exact", "--id", pkg, "--accept-source-agreements"))
	if err != nil {
		if isExit(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "querying %s", pkg)
	}
	return strings.Contains(strings.ToLower(string(res.Stdout)), strings.ToLower(pkg)), nil
}

// Install runs winget once per package; winget accepts a single id per call.
func (m *WingetManager) Install(ctx context.Context, pkgs []string) error {
	var errs []error
	for _, p := range pkgs {
		c := shell.Command("winget", "install", "--exact", "--id", p, "--silent",
			"--accept-package-agreements", "--accept-source-agreements")
		if err := m.runElevated(ctx, c); err != nil {
			errs = append(errs, errors.Wrapf(err, "installing %s", p))
		}
	}
	return errors.Join(errs...)
}
