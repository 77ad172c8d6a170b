package provision

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

// RustupInitURL serves the official rustup installer script.
var RustupInitURL = "https://sh.rustup.rs"

type rustStep struct {
	note
	rustup         string
	defaultMissing bool
	missing        []string
}

func (*rustStep) ID() string    { return StepRustToolchain }
func (*rustStep) Title() string { return "Rust toolchain" }

func (st *rustStep) Check(ctx context.Context, s *Session) (Status, error) {
	st.rustup, st.defaultMissing, st.missing = "", false, nil

	rustup, found := s.Locate("rustup", s.cargoBin())
	if !found {
		st.say("would install rustup")
		return StatusPending, nil
	}
	st.rustup = rustup

	if err := st.inspect(ctx, s); err != nil {
		return "", err
	}

	var todo []string
	if st.defaultMissing {
		todo = append(todo, "set the stable toolchain as default")
	}
	if len(st.missing) > 0 {
		todo = append(todo, "add targets "+strings.Join(st.missing, ", "))
	}
	if !s.OnPath(ctx, s.cargoBin()) {
		todo = append(todo, "add "+s.cargoBin()+" to PATH")
	}
	if len(todo) > 0 {
		st.say("would %s", strings.Join(todo, "; "))
		return StatusPending, nil
	}

	st.say("default toolchain and %d targets installed", len(s.Catalog.ByKind(catalog.KindTarget)))
	return StatusOK, nil
}

func (st *rustStep) Apply(ctx context.Context, s *Session) StepResult {
	did := false

	if st.rustup == "" {
		if err := st.installRustup(ctx, s); err != nil {
			if fatal(err) {
				return StepResult{Status: StatusFatal, Message: err.Error(), Err: err}
			}
			s.Manual("rustup")
			return warn(err, "installing rustup")
		}
		did = true
	}

	added, err := s.AddPath(ctx, s.cargoBin())
	if err != nil {
		return withChange(warn(err, "adding cargo to PATH"), did)
	}
	did = did || added

	if st.rustup == "" {
		rustup, found := s.Locate("rustup", s.cargoBin())
		if !found {
			return withChange(warn(nil, "rustup was installed but cannot be found in %s", s.cargoBin()), did)
		}
		st.rustup = rustup
		if err := st.inspect(ctx, s); err != nil {
			return withChange(warn(err, "inspecting rustup"), did)
		}
	}

	if st.defaultMissing {
		if _, err := s.Runner.Run(ctx, shell.Command(st.rustup, "default", "stable")); err != nil {
			return withChange(warn(err, "setting the default toolchain"), did)
		}
		did = true
	}

	if len(st.missing) > 0 {
		cmd := shell.Command(st.rustup, append([]string{"target", "add"}, st.missing...)...)
		cmd.Stream = true
		if _, err := s.Runner.Run(ctx, cmd); err != nil {
			return withChange(warn(err, "adding targets %s", strings.Join(st.missing, ", ")), did)
		}
		return converged("added targets %s", strings.Join(st.missing, ", "))
	}

	return withChange(unchanged("toolchain ready"), did)
}

// inspect reads the default toolchain and the installed targets.
func (st *rustStep) inspect(ctx context.Context, s *Session) error {
	res, err := s.Runner.Run(ctx, shell.Command(st.rustup, "default"))
	st.defaultMissing = err != nil || res.Output() == "" || strings.Contains(res.Output(), "no default")

	st.missing = nil
	if st.defaultMissing {
		// Targets cannot be listed without a toolchain.
		st.missing, _ = s.Catalog.Packages(catalog.KindTarget, catalog.InstallerRustup)
		return nil
	}

	res, err = s.Runner.Run(ctx, shell.Command(st.rustup, "target", "list", "--installed"))
	if err != nil {
		return errors.Wrap(err, "listing installed targets")
	}
	installed := strings.Fields(res.Output())
	wanted, _ := s.Catalog.Packages(catalog.KindTarget, catalog.InstallerRustup)
	for _, t := range wanted {
		if !slices.Contains(installed, t) {
			st.missing = append(st.missing, t)
		}
	}
	return nil
}

// installRustup uses the package manager where one provides rustup
// (winget), otherwise the official installer script without profile edits.
// Only called when no rustup exists, so a failed download is fatal.
func (st *rustStep) installRustup(ctx context.Context, s *Session) error {
	req, _ := s.Catalog.Get("rustup")
	if s.Manager != nil {
		if pkg, has := req.Package(s.Manager.Name()); has {
			return s.Install(ctx, pkg)
		}
	}
	if s.Host.OS == platform.Windows {
		return errors.New("no package manager provides rustup; install it from https://rustup.rs")
	}

	script := filepath.Join(s.CacheDir, "rustup-init.sh")
	if err := s.Fetcher.Fetch(ctx, RustupInitURL, script); err != nil {
		return errors.NewSystemError(
			errors.Wrapf(errors.ErrDownloadUnavailable, "downloading rustup-init: %v", err),
			"check network access to sh.rustup.rs and re-run provision run",
		)
	}
	body, err := afero.ReadFile(s.Fs, script)
	if err != nil {
		return errors.Wrap(err, "reading rustup-init")
	}

	cmd := shell.Command("sh", "-s", "--", "-y", "--no-modify-path")
	cmd.Stdin = string(body)
	cmd.Stream = true
	_, err = s.Runner.Run(ctx, cmd)
	return errors.Wrap(err, "running rustup-init")
}

type cargoToolsStep struct {
	note
	missing []catalog.Requirement
}

func (*cargoToolsStep) ID() string    { return StepCargoTools }
func (*cargoToolsStep) Title() string { return "Cargo tools" }

func (st *cargoToolsStep) Check(_ context.Context, s *Session) (Status, error) {
	st.missing = missingBinaries(s, s.Catalog.ByKind(catalog.KindCargo))
	if len(st.missing) == 0 {
		st.say("%s installed", strings.Join(manualNames(s.Catalog.ByKind(catalog.KindCargo)), ", "))
		return StatusOK, nil
	}
	st.say("would cargo install %s", strings.Join(crates(st.missing), " "))
	return StatusPending, nil
}

func (st *cargoToolsStep) Apply(ctx context.Context, s *Session) StepResult {
	logger := logging.FromContext(ctx)

	cargo, found := s.Locate("cargo", s.cargoBin())
	if !found {
		s.Manual(crates(st.missing)...)
		return warn(nil, "cargo is not available; install the Rust toolchain first")
	}

	var installed, failed []string
	for _, crate := range crates(st.missing) {
		if err := cargoInstall(ctx, s, cargo, crate); err != nil {
			logger.Warn("cargo install failed", "crate", crate, "error", err)
			failed = append(failed, crate)
			continue
		}
		installed = append(installed, crate)
	}

	if len(failed) > 0 {
		s.Manual(failed...)
		return withChange(warn(nil, "failed to install %s", strings.Join(failed, ", ")), len(installed) > 0)
	}
	return converged("installed %s", strings.Join(installed, ", "))
}

type commitHelperStep struct {
	note
	req catalog.Requirement
}

func (*commitHelperStep) ID() string    { return StepCommitHelper }
func (*commitHelperStep) Title() string { return "Commit helper" }

func (st *commitHelperStep) Check(_ context.Context, s *Session) (Status, error) {
	optional := s.Catalog.ByKind(catalog.KindOptional)
	if len(optional) == 0 {
		st.say("no optional tools declared")
		return StatusSkipped, nil
	}
	st.req = optional[0]
	if len(missingBinaries(s, optional[:1])) == 0 {
		st.say("%s installed", st.req.Name)
		return StatusOK, nil
	}
	st.say("would offer to install %s", st.req.Name)
	return StatusPending, nil
}

func (st *commitHelperStep) Apply(ctx context.Context, s *Session) StepResult {
	yes, err := s.Prompt.Confirm("Install the "+st.req.Name+" commit helper?", false)
	if err != nil {
		return warn(err, "reading answer")
	}
	if !yes {
		return skipped("declined")
	}

	crate, has := st.req.Package(catalog.InstallerCargo)
	if !has {
		return warn(nil, "%s has no cargo crate", st.req.Name)
	}
	cargo, found := s.Locate("cargo", s.cargoBin())
	if !found {
		s.Manual(st.req.Name)
		return warn(nil, "cargo is not available; install the Rust toolchain first")
	}
	if err := cargoInstall(ctx, s, cargo, crate); err != nil {
		s.Manual(st.req.Name)
		return warn(err, "cargo install %s", crate)
	}
	return converged("installed %s", st.req.Name)
}

func cargoInstall(ctx context.Context, s *Session, cargo, crate string) error {
	cmd := shell.Command(cargo, "install", crate)
	cmd.Stream = true
	_, err := s.Runner.Run(ctx, cmd)
	return err
}

// missingBinaries returns the requirements whose probe is neither on the
// search path nor in the cargo bin directory.
func missingBinaries(s *Session, reqs []catalog.Requirement) []catalog.Requirement {
	var missing []catalog.Requirement
	for _, r := range reqs {
		probe := r.Probe
		if probe == "" {
			probe = r.ID
		}
		if _, found := s.Locate(probe, s.cargoBin()); !found {
			missing = append(missing, r)
		}
	}
	return missing
}

func crates(reqs []catalog.Requirement) []string {
	var out []string
	for _, r := range reqs {
		if c, has := r.Package(catalog.InstallerCargo); has {
			out = append(out, c)
		}
	}
	return out
}
