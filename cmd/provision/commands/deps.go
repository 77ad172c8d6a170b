package commands

import (
	"os"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/cmd"
	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/config"
	"github.com/thoreinstein/provision/internal/download"
	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/paths"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/provision"
	"github.com/thoreinstein/provision/internal/shell"
)

// hostDeps wires the provisioner collaborators for the current machine.
func hostDeps(cfg *config.Config, mode prompt.Mode) (provision.Deps, error) {
	host, err := platform.Detect()
	if err != nil {
		return provision.Deps{}, errors.NewSystemError(err, "could not inspect the host")
	}

	fs := afero.NewOsFs()
	cat, err := loadCatalog(fs, cfg)
	if err != nil {
		return provision.Deps{}, err
	}

	env := envstore.OSEnv{}
	runner := shell.NewExecRunner()

	deps := provision.Deps{
		Host:     host,
		Config:   cfg,
		Catalog:  cat,
		Runner:   runner,
		Fs:       fs,
		Env:      env,
		Fetcher:  download.New(download.WithFs(fs), download.WithAttempts(cfg.Download.Attempts)),
		Prompt:   prompt.New(mode),
		CacheDir: paths.DownloadCacheDir(),
	}

	if host.OS == platform.Windows {
		deps.Store = envstore.NewWindowsStore(runner, env, envstore.ScopeMachine)
		return deps, nil
	}

	profile := cfg.Profile
	if profile == "" {
		profile = paths.ProfileFor(host.Shell, host.Home)
	}
	profile = paths.Expand(profile, host.Home)

	store := envstore.NewProfileStore(fs, profile, env)
	store.BeforeWrite = backup.NewGuard(backupManager(cfg)).EnsureBackedUp
	deps.Store = store
	deps.Profile = profile
	return deps, nil
}

// loadCatalog returns the default catalog merged with the configured
// override file, if any.
func loadCatalog(fs afero.Fs, cfg *config.Config) (*catalog.Catalog, error) {
	cat := catalog.Default(provision.CatalogOptions(cfg))
	if cfg.Catalog == "" {
		return cat, nil
	}
	extra, err := catalog.Load(fs, paths.Expand(cfg.Catalog, paths.Home()))
	if err != nil {
		return nil, errors.NewConfigError(err)
	}
	cat.Merge(extra)
	return cat, nil
}

func backupManager(cfg *config.Config) *backup.Manager {
	backup.Version = cmd.Version
	return backup.NewManager(backup.WithRetentionCount(cfg.Backup.Retention))
}

// promptMode picks how confirmations are answered: --yes wins, then
// --no-input, then a non-interactive stdin.
func promptMode(cfg *config.Config, yes, noInput bool) prompt.Mode {
	switch {
	case yes || cfg.AssumeYes:
		return prompt.ModeAssumeYes
	case noInput || cfg.NoInput || !logging.IsTTY(os.Stdin):
		return prompt.ModeDefaults
	default:
		return prompt.ModeInteractive
	}
}
