package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/download"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

// CmdlineToolsURL is the Android command-line tools archive location;
// the verbs are the host token (linux, mac, win) and the build number.
var CmdlineToolsURL = "https://dl.google.com/android/repository/commandlinetools-%s-%s_latest.zip"

// licenseAnswers is fed to sdkmanager --licenses.
var licenseAnswers = strings.Repeat("y\n", 32)

type androidStep struct {
	note
	root       string
	sdkmanager string
	missing    []string
}

func (*androidStep) ID() string    { return StepAndroidSDK }
func (*androidStep) Title() string { return "Android SDK" }

func (st *androidStep) Check(ctx context.Context, s *Session) (Status, error) {
	st.root = s.androidRoot()
	st.missing = nil

	sdk, found := st.locate(s)
	if !found {
		st.sdkmanager = ""
		st.say("would download command-line tools into %s", st.root)
		return StatusPending, nil
	}
	st.sdkmanager = sdk

	missing, err := st.missingComponents(ctx, s)
	if err != nil {
		return "", err
	}
	st.missing = missing

	if len(missing) > 0 {
		st.say("would install %s", strings.Join(missing, " "))
		return StatusPending, nil
	}
	if !s.Bound(ctx, "ANDROID_HOME", st.root) || !s.Bound(ctx, "ANDROID_SDK_ROOT", st.root) ||
		!s.OnPath(ctx, st.pathDirs(s)...) {
		st.say("would persist ANDROID_HOME and PATH entries for %s", st.root)
		return StatusPending, nil
	}

	st.say("all components installed in %s", st.root)
	return StatusOK, nil
}

func (st *androidStep) Apply(ctx context.Context, s *Session) StepResult {
	logger := logging.FromContext(ctx)
	did := false
	var problems []string

	if st.sdkmanager == "" {
		sdk, err := st.installCmdlineTools(ctx, s)
		if err != nil {
			return StepResult{Status: StatusFatal, Message: err.Error(), Err: err}
		}
		st.sdkmanager = sdk
		did = true
	}

	cmd := st.command("--licenses")
	cmd.Stdin = licenseAnswers
	if _, err := s.Runner.Run(ctx, cmd); err != nil {
		s.licensesFailed = true
		logger.Warn("accepting Android SDK licenses failed", "error", err)
		problems = append(problems, "license acceptance failed")
	}

	if st.missing == nil {
		missing, err := st.missingComponents(ctx, s)
		if err != nil {
			problems = append(problems, err.Error())
		}
		st.missing = missing
	}
	if len(st.missing) > 0 {
		install := st.command(st.missing...)
		install.Stream = true
		if _, err := s.Runner.Run(ctx, install); err != nil {
			problems = append(problems, fmt.Sprintf("installing %s: %v", strings.Join(st.missing, " "), err))
		} else {
			did = true
		}
	}

	for _, name := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		bound, err := s.Bind(ctx, name, st.root)
		if err != nil {
			problems = append(problems, err.Error())
		}
		did = did || bound
	}
	added, err := s.AddPath(ctx, st.pathDirs(s)...)
	if err != nil {
		problems = append(problems, err.Error())
	}
	did = did || added

	if len(problems) > 0 {
		return withChange(warn(nil, "%s", strings.Join(problems, "; ")), did)
	}
	if len(st.missing) > 0 {
		return converged("installed %s in %s", strings.Join(st.missing, " "), st.root)
	}
	return withChange(unchanged("all components installed in %s", st.root), did)
}

// locate finds sdkmanager inside the SDK root, then on the search path.
func (st *androidStep) locate(s *Session) (string, bool) {
	inRoot := filepath.Join(st.root, "cmdline-tools", "latest", "bin", st.sdkmanagerName(s))
	if ok, _ := afero.Exists(s.Fs, inRoot); ok {
		return inRoot, true
	}
	if p, err := s.Runner.LookPath("sdkmanager"); err == nil {
		return p, true
	}
	return "", false
}

func (*androidStep) sdkmanagerName(s *Session) string {
	if s.Host.OS == platform.Windows {
		return "sdkmanager.bat"
	}
	return "sdkmanager"
}

func (st *androidStep) command(args ...string) shell.Cmd {
	return shell.Command(st.sdkmanager, append([]string{"--sdk_root=" + st.root}, args...)...)
}

// pathDirs lists the SDK directories to persist on PATH. The cmdline-tools
// bin is only included when the sdkmanager in use lives there.
func (st *androidStep) pathDirs(s *Session) []string {
	var dirs []string
	if bin := filepath.Join(st.root, "cmdline-tools", "latest", "bin"); within(st.sdkmanager, bin) {
		dirs = append(dirs, bin)
	}
	dirs = append(dirs, filepath.Join(st.root, "platform-tools"))
	if s.Config.Android.Emulator {
		dirs = append(dirs, filepath.Join(st.root, "emulator"))
	}
	return dirs
}

// missingComponents compares the catalog against sdkmanager --list_installed.
func (st *androidStep) missingComponents(ctx context.Context, s *Session) ([]string, error) {
	res, err := s.Runner.Run(ctx, st.command("--list_installed"))
	if err != nil {
		return nil, errors.Wrap(err, "listing installed SDK components")
	}
	installed := ParseInstalledPackages(res.Output())

	var missing []string
	for _, req := range s.Catalog.ByKind(catalog.KindAndroid) {
		pkg, has := req.Package(catalog.InstallerSDKManager)
		if !has || req.ID == "cmdline-tools" {
			continue
		}
		if !slices.Contains(installed, pkg) {
			missing = append(missing, pkg)
		}
	}
	return missing, nil
}

// installCmdlineTools downloads and extracts the command-line tools as
// <root>/cmdline-tools/latest. Any failure is fatal: nothing else in the
// Android toolchain can be installed without them.
func (st *androidStep) installCmdlineTools(ctx context.Context, s *Session) (string, error) {
	token := map[string]string{platform.Linux: "linux", platform.Darwin: "mac", platform.Windows: "win"}[s.Host.OS]
	build := s.Config.Android.CmdlineToolsBuild
	url := fmt.Sprintf(CmdlineToolsURL, token, build)
	archive := filepath.Join(s.CacheDir, fmt.Sprintf("commandlinetools-%s-%s.zip", token, build))

	unavailable := func(err error, msg string) error {
		return errors.NewSystemError(
			errors.Wrapf(errors.ErrDownloadUnavailable, "%s: %v", msg, err),
			"check network access to dl.google.com and re-run provision run",
		)
	}

	if cached, _ := afero.Exists(s.Fs, archive); !cached {
		if err := s.Fetcher.Fetch(ctx, url, archive); err != nil {
			return "", unavailable(err, "downloading Android command-line tools")
		}
	}

	dest := filepath.Join(st.root, "cmdline-tools", "latest")
	if err := download.ExtractZip(s.Fs, archive, dest, 1); err != nil {
		// Drop the archive so the next run downloads it again.
		_ = s.Fs.Remove(archive)
		return "", unavailable(err, "extracting Android command-line tools")
	}

	sdk, found := st.locate(s)
	if !found {
		return "", unavailable(errors.Newf("sdkmanager missing from %s", dest), "installing Android command-line tools")
	}
	return sdk, nil
}

// ParseInstalledPackages extracts package paths from the table printed by
// sdkmanager --list_installed.
func ParseInstalledPackages(out string) []string {
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		path, _, found := strings.Cut(line, "|")
		if !found {
			continue
		}
		path = strings.TrimSpace(path)
		if path == "" || path == "Path" || strings.HasPrefix(path, "---") {
			continue
		}
		pkgs = append(pkgs, path)
	}
	return pkgs
}
