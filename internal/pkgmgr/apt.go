package pkgmgr

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// AptManager drives Debian-family hosts.
type AptManager struct {
	base
}

// NewApt returns an apt strategy.
func NewApt(r shell.Runner) *AptManager {
	return &AptManager{base{runner: r}}
}

func (m *AptManager) Name() string { return Apt }
func (m *AptManager) NeedsRefresh() bool { return true }
func (m *AptManager) NeedsElevation() bool { return true }

// IsInstalled queries dpkg for the package status.
func (m *AptManager) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	res, err := m.run(ctx, shell.Command("dpkg-query", "-W", "-f=${Status}", pkg))
	if err != nil {
		if isExit(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "querying %s", pkg)
	}
	return strings.Contains(string(res.Stdout), "install ok installed"), nil
}

func (m *AptManager) Refresh(ctx context.Context) error {
	return errors.Wrap(m.runElevated(ctx, shell.Command("apt-get", "update")), "refreshing apt index")
}

func (m *AptManager) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	c := shell.Command("apt-get", append([]string{"install", "-y", "--no-install-recommends"}, pkgs...)...)
	c.Env = []string{"DEBIAN_FRONTEND=noninteractive"}
	return errors.Wrapf(m.runElevated(ctx, c), "installing %d packages", len(pkgs))
}
