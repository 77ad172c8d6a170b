// Package pkgmgr implements system package-manager strategies.
//
// Each strategy answers "is this package installed" from the manager's own
// database and installs a set of packages in one invocation:
//
//	| Manager | Installed query               | Install                                   | Refresh      | Root |
//	|---------|-------------------------------|-------------------------------------------|--------------|------|
//	| apt     | dpkg-query -W -f=${Status}    | apt-get install -y --no-install-recommends | apt-get update | yes |
//	| dnf     | rpm -q --whatprovides         | dnf install -y                            | (none)       | yes  |
//	| pacman  | pacman -Q                     | pacman -Syu --needed --noconfirm          | (in install) | yes  |
//	| brew    | brew list --formula / --cask  | brew install [--cask]                     | (none)       | no   |
//	| winget  | winget list --exact --id      | winget install --exact --id (per package) | (none)       | no   |
//
// The [Registry] holds strategies in priority order per OS family and
// selects exactly one per run with [Registry.Detect].
package pkgmgr
