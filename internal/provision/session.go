package provision

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/config"
	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/download"
	"github.com/thoreinstein/provision/internal/elevate"
	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/git"
	"github.com/thoreinstein/provision/internal/paths"
	"github.com/thoreinstein/provision/internal/pkgmgr"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

// Deps are the collaborators a run needs. Host, Config, Runner, Store and
// Fetcher are required; the rest default.
type Deps struct {
	Host    *platform.Host
	Config  *config.Config
	Catalog *catalog.Catalog
	Runner  shell.Runner
	Fs      afero.Fs
	Env     envstore.Env
	Store   envstore.Store
	Fetcher download.Fetcher
	Prompt  prompt.Confirmer

	// Registry defaults to pkgmgr.DefaultRegistry().
	Registry *pkgmgr.Registry

	// Profile is the shell profile on Unix hosts, checked by diagnostics.
	Profile string

	// CacheDir holds downloaded archives. Defaults to paths.DownloadCacheDir().
	CacheDir string

	// EvalSymlinks resolves the JDK compiler to its install root.
	// Defaults to filepath.EvalSymlinks.
	EvalSymlinks func(string) (string, error)
}

// Session is the mutable state of one run.
type Session struct {
	Deps

	Git *git.Client

	// Manager is the selected package manager; nil when none is available.
	Manager pkgmgr.Manager

	// Elevation is set when the manager or the store needs privileges.
	Elevation *elevate.Elevation

	// Diagnostics is the report of the final diagnostics step.
	Diagnostics *doctor.Report

	forcedManager   string
	managerResolved bool
	refreshed       bool
	licensesFailed  bool
	manual          []string
}

// NewSession fills defaults into d. forced overrides the configured package
// manager when non-empty.
func NewSession(d Deps, forced string) *Session {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Env == nil {
		d.Env = envstore.OSEnv{}
	}
	if d.Registry == nil {
		d.Registry = pkgmgr.DefaultRegistry()
	}
	if d.Prompt == nil {
		d.Prompt = prompt.New(prompt.ModeDefaults)
	}
	if d.CacheDir == "" {
		d.CacheDir = paths.DownloadCacheDir()
	}
	if d.EvalSymlinks == nil {
		d.EvalSymlinks = filepath.EvalSymlinks
	}
	if d.Config == nil {
		d.Config = &config.Config{}
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default(CatalogOptions(d.Config))
	}
	if forced == "" {
		forced = d.Config.PackageManager
	}
	return &Session{Deps: d, Git: git.New(d.Runner), forcedManager: forced}
}

// CatalogOptions derives the default catalog parameters from cfg.
func CatalogOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		JDKVersion:      cfg.JDK.Version,
		AndroidPlatform: cfg.Android.Platform,
		BuildTools:      cfg.Android.BuildTools,
		Emulator:        cfg.Android.Emulator,
		Extensions:      cfg.VSCode.Extensions,
		Targets:         cfg.Rust.Targets,
		CargoTools:      cfg.Rust.Tools,
	}
}

// Install installs pkgs with the selected manager. The package index is
// refreshed at most once per run, right before the first install that
// needs it.
func (s *Session) Install(ctx context.Context, pkgs ...string) error {
	if s.Manager == nil {
		return errors.ErrNoPackageManager
	}
	if len(pkgs) == 0 {
		return nil
	}
	if s.Manager.NeedsRefresh() && !s.refreshed {
		s.refreshed = true
		if err := s.Manager.Refresh(ctx); err != nil {
			return errors.Wrap(err, "refreshing package index")
		}
	}
	return s.Manager.Install(ctx, pkgs)
}

// ManagerName returns the selected manager's name or "none".
func (s *Session) ManagerName() string {
	if s.Manager == nil {
		return pkgmgr.None
	}
	return s.Manager.Name()
}

// Bind persists NAME=value.
func (s *Session) Bind(ctx context.Context, name, value string) (bool, error) {
	scope := envstore.ScopeUser
	if s.Host.OS == platform.Windows {
		scope = envstore.ScopeMachine
	}
	changed, err := s.Store.EnsureBinding(ctx, envstore.Binding{Name: name, Value: value, Scope: scope})
	return changed, errors.Wrapf(err, "persisting %s", name)
}

// AddPath persists dir on PATH.
func (s *Session) AddPath(ctx context.Context, dirs ...string) (bool, error) {
	did := false
	for _, dir := range dirs {
		changed, err := s.Store.EnsurePathEntry(ctx, dir)
		if err != nil {
			return did, errors.Wrapf(err, "adding %s to PATH", dir)
		}
		did = did || changed
	}
	return did, nil
}

// Bound reports whether name is persisted with value.
func (s *Session) Bound(ctx context.Context, name, value string) bool {
	cur, ok, err := s.Store.Lookup(ctx, name)
	return err == nil && ok && s.samePath(cur, value)
}

// OnPath reports whether every dir is persisted or already on the live PATH.
func (s *Session) OnPath(ctx context.Context, dirs ...string) bool {
	entries, err := s.Store.PathEntries(ctx)
	if err != nil {
		return false
	}
	entries = append(entries, envstore.SplitPath(s.Env.Getenv("PATH"), s.PathSep())...)
	for _, dir := range dirs {
		if !slices.ContainsFunc(entries, func(e string) bool { return s.samePath(e, dir) }) {
			return false
		}
	}
	return true
}

// PathSep returns the PATH list separator of the host.
func (s *Session) PathSep() rune {
	if s.Host.OS == platform.Windows {
		return ';'
	}
	return ':'
}

func (s *Session) samePath(a, b string) bool {
	if s.Host.OS == platform.Windows {
		return strings.EqualFold(strings.TrimRight(a, `\`), strings.TrimRight(b, `\`))
	}
	return a == b
}

// Locate finds name on the search path, then in each of dirs.
func (s *Session) Locate(name string, dirs ...string) (string, bool) {
	if p, err := s.Runner.LookPath(name); err == nil {
		return p, true
	}
	for _, dir := range dirs {
		for _, candidate := range s.executableNames(name) {
			p := filepath.Join(dir, candidate)
			if ok, _ := afero.Exists(s.Fs, p); ok {
				return p, true
			}
		}
	}
	return "", false
}

func (s *Session) executableNames(name string) []string {
	if s.Host.OS == platform.Windows {
		return []string{name + ".exe", name + ".bat", name + ".cmd"}
	}
	return []string{name}
}

// Manual records tools the operator must install by hand.
func (s *Session) Manual(names ...string) {
	for _, n := range names {
		if !slices.Contains(s.manual, n) {
			s.manual = append(s.manual, n)
		}
	}
}

// ManualInstalls returns the tools recorded with Manual.
func (s *Session) ManualInstalls() []string {
	return slices.Clone(s.manual)
}

func (s *Session) home() string {
	return s.Host.Home
}

func (s *Session) cargoBin() string {
	return paths.CargoBin(s.home())
}

func (s *Session) flutterDir() string {
	return s.Config.FlutterDir(s.home())
}

// androidRoot resolves the SDK root: ANDROID_HOME, ANDROID_SDK_ROOT, the
// configured root, then the per-OS default.
func (s *Session) androidRoot() string {
	for _, name := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if v := s.Env.Getenv(name); v != "" {
			return v
		}
	}
	if root := s.Config.AndroidSDKRoot(s.home()); root != "" {
		return root
	}
	return paths.AndroidSDKRoot(s.Host.OS, s.home())
}

// fatal reports whether err aborts the run.
func fatal(err error) bool {
	return errors.Is(err, errors.ErrNoElevation) || errors.Is(err, errors.ErrDownloadUnavailable)
}

// output returns trimmed stdout followed by stderr.
func output(res shell.Result) string {
	out := strings.TrimSpace(string(res.Stdout))
	if e := strings.TrimSpace(string(res.Stderr)); e != "" {
		if out != "" {
			out += "\n"
		}
		out += e
	}
	return out
}
