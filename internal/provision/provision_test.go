package provision

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

func statusOf(t *testing.T, r *Report, id string) Status {
	t.Helper()
	res, found := r.Get(id)
	require.True(t, found, "no result for %s", id)
	return res.Status
}

func checkNamed(t *testing.T, r *Report, name string) *doctor.CheckResult {
	t.Helper()
	require.NotNil(t, r.Doctor)
	for _, res := range r.Doctor.Results {
		if res.Name == name {
			return res
		}
	}
	require.FailNow(t, "no diagnostic named "+name)
	return nil
}

func TestRun_FreshAptHost(t *testing.T) {
	w := newWorld(t)

	report, err := w.run(Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, w.runner.Count("sudo apt-get update"), "index refreshed exactly once")
	assert.Equal(t, 1, strings.Count(w.profile(), "export JAVA_HOME="), "JAVA_HOME written exactly once")
	assert.Contains(t, w.profile(), `export JAVA_HOME="`+jvmRoot+`"`)
	assert.Contains(t, w.profile(), `export ANDROID_HOME="`+w.sdkRoot()+`"`)
	assert.Contains(t, w.profile(), `export PATH="$PATH:`+w.flutter()+`/bin"`)

	for _, id := range []string{
		StepSystemPackages, StepJDK, StepAndroidSDK, StepFlutterSDK,
		StepVSCode, StepVSCodeExtensions, StepRustToolchain, StepCargoTools,
	} {
		assert.Equal(t, StatusChanged, statusOf(t, report, id), id)
	}
	assert.Equal(t, StatusOK, statusOf(t, report, StepElevation))
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepCommitHelper), "optional tools default to no")
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepSampleApp))
	assert.Equal(t, StatusOK, statusOf(t, report, StepDiagnostics))

	assert.Equal(t, "apt", report.Manager)
	assert.Empty(t, report.Fatal)
	require.NotEmpty(t, report.NextSteps)
	assert.Contains(t, report.NextSteps[0], "restart your shell")
	require.NotNil(t, report.Doctor)
	sdk := checkNamed(t, report, "sdkmanager-version")
	assert.Equal(t, doctor.SeverityPass, sdk.Status)
	assert.Equal(t, "12.0", sdk.Message)

	// every install command was elevated
	for _, line := range w.runner.Lines() {
		if strings.HasPrefix(line, "apt-get") {
			t.Errorf("unelevated apt command: %s", line)
		}
	}
	assert.Len(t, w.fetcher.calls, 2, "command-line tools and rustup-init")
}

func TestRun_Idempotent(t *testing.T) {
	w := newWorld(t)

	_, err := w.run(Options{})
	require.NoError(t, err)
	firstProfile := w.profile()
	firstInstalls := w.installs()
	firstFetches := len(w.fetcher.calls)

	report, err := w.run(Options{})
	require.NoError(t, err)

	assert.Equal(t, firstProfile, w.profile(), "second run leaves the profile untouched")
	assert.Equal(t, firstInstalls, w.installs(), "second run installs nothing")
	assert.Equal(t, firstFetches, len(w.fetcher.calls), "second run downloads nothing")
	assert.Zero(t, report.Changed())
	assert.Zero(t, report.Counts[StatusWarning])
	assert.NotContains(t, strings.Join(report.NextSteps, "\n"), "restart your shell")

	for _, line := range strings.Split(strings.TrimSpace(firstProfile), "\n") {
		assert.Equal(t, 1, strings.Count(firstProfile, line+"\n"), "duplicate profile line %q", line)
	}
}

func TestRun_MonotonicConvergence(t *testing.T) {
	w := newWorld(t)
	w.fetcher.fail[RustupInitURL] = errors.New("connection reset")

	first, err := w.run(Options{})
	require.Error(t, err, "rustup-init is a required download and no rustup exists")
	assert.ErrorIs(t, err, errors.ErrDownloadUnavailable)
	assert.Equal(t, errors.ExitSystem, errors.ExitCode(err))
	assert.Equal(t, StatusFatal, statusOf(t, first, StepRustToolchain))
	_, found := first.Get(StepCargoTools)
	assert.False(t, found, "run stops at the fatal step")

	delete(w.fetcher.fail, RustupInitURL)
	second, err := w.run(Options{})
	require.NoError(t, err)

	for _, res := range first.Results {
		if res.Status != StatusOK && res.Status != StatusChanged {
			continue
		}
		assert.Contains(t, []Status{StatusOK, StatusChanged}, statusOf(t, second, res.ID),
			"%s was satisfied and must stay satisfied", res.ID)
	}
	assert.Equal(t, StatusChanged, statusOf(t, second, StepRustToolchain))
	assert.Equal(t, StatusChanged, statusOf(t, second, StepCargoTools))
}

func TestRun_OlderJDKAheadOnPath(t *testing.T) {
	w := newWorld(t)
	w.runner.AddBin("javac", "/opt/jdk11/bin")
	w.runner.Reply("/opt/jdk11/bin/javac -version", "javac 11.0.20\n")
	// the distribution JDK lands in /usr/lib/jvm while /opt stays first on PATH
	w.runner.On("sudo apt-get install", func(c shell.Cmd) (shell.Result, error) {
		for _, pkg := range c.Args[slices.Index(c.Args, "--no-install-recommends")+1:] {
			w.apt[pkg] = true
		}
		require.NoError(t, w.fs.MkdirAll(jvmRoot+"/bin", 0o755))
		return shell.Result{}, afero.WriteFile(w.fs, jvmRoot+"/bin/javac", nil, 0o755)
	})

	for i := range 3 {
		report, err := w.run(Options{Only: []string{StepJDK}})
		require.NoError(t, err)
		want := StatusOK
		if i == 0 {
			want = StatusChanged
		}
		assert.Equal(t, want, statusOf(t, report, StepJDK), "run %d", i+1)
	}

	assert.Equal(t, 1, w.runner.Count("sudo apt-get install"), "pinned JDK installed once")
	assert.Contains(t, w.profile(), `export JAVA_HOME="`+jvmRoot+`"`)
	assert.NotContains(t, w.profile(), "/opt/jdk11")
}

func TestRun_PinnedJDKInstalledButNotFound(t *testing.T) {
	w := newWorld(t)
	w.apt["openjdk-17-jdk"] = true

	report, err := w.run(Options{Only: []string{StepJDK}})
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, statusOf(t, report, StepJDK))
	assert.Zero(t, w.runner.Count("sudo apt-get install"), "an installed package is not reinstalled")
	assert.NotContains(t, w.profile(), "JAVA_HOME")
}

func TestRun_GuardedMutation(t *testing.T) {
	w := newWorld(t)
	existing := "# user settings\nexport JAVA_HOME=\"" + jvmRoot + "\"\n"
	require.NoError(t, afero.WriteFile(w.fs, profile, []byte(existing), 0o600))
	w.env["PATH"] += ":" + w.cargoBin()

	_, err := w.run(Options{})
	require.NoError(t, err)

	got := w.profile()
	assert.True(t, strings.HasPrefix(got, existing), "existing lines are kept in place")
	assert.Equal(t, 1, strings.Count(got, "JAVA_HOME"))
	assert.NotContains(t, got, w.cargoBin(), "entry already on the live PATH is not persisted")

	info, err := w.fs.Stat(profile)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	snapshots, err := w.backups.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1, "profile snapshotted once before the first write")
	data, err := afero.ReadFile(w.fs, "/state/backups/"+snapshots[0].ID+"/home/dev/.bashrc")
	require.NoError(t, err)
	assert.Equal(t, existing, string(data))
}

func TestRun_NoElevation(t *testing.T) {
	w := newWorld(t)
	w.runner.RemoveBin("sudo")

	report, err := w.run(Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoElevation)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "re-run as root or install sudo", exitErr.Suggestion)

	assert.Equal(t, StatusFatal, statusOf(t, report, StepElevation))
	assert.NotEmpty(t, report.Fatal)
	_, found := report.Get(StepSystemPackages)
	assert.False(t, found, "run stops at the fatal step")
	assert.Zero(t, w.runner.Count("apt-get"))
	assert.Empty(t, w.profile())
}

func TestRun_WindowsMachineStoreNeedsAdmin(t *testing.T) {
	w := newWorld(t)
	w.host.OS = platform.Windows
	w.runner.RemoveBin("apt-get")
	w.runner.RemoveBin("sudo")
	w.runner.AddBin("winget", `C:\Users\dev\AppData\Local\Microsoft\WindowsApps`)
	w.runner.Fail("net session", 2, "Access is denied.")

	d := w.deps()
	d.Store = envstore.NewWindowsStore(w.runner, w.env, envstore.ScopeMachine)
	p, err := New(d, Options{Only: []string{StepVSCode}})
	require.NoError(t, err)

	report, err := p.Run(w.ctx())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoElevation)

	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "re-run from an elevated PowerShell", exitErr.Suggestion)

	assert.Equal(t, StatusFatal, statusOf(t, report, StepElevation))
	_, found := report.Get(StepVSCode)
	assert.False(t, found, "run stops at the fatal step")
	assert.Zero(t, w.runner.Count("winget install"))
}

func TestRun_WindowsUserStoreSkipsElevation(t *testing.T) {
	w := newWorld(t)
	w.host.OS = platform.Windows
	w.runner.RemoveBin("apt-get")
	w.runner.RemoveBin("sudo")
	w.runner.AddBin("winget", `C:\Users\dev\AppData\Local\Microsoft\WindowsApps`)
	w.runner.Fail("net session", 2, "Access is denied.")

	d := w.deps()
	d.Store = envstore.NewWindowsStore(w.runner, w.env, envstore.ScopeUser)
	p, err := New(d, Options{Only: []string{StepVSCode}})
	require.NoError(t, err)

	report, err := p.Run(w.ctx())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepElevation))
	assert.Zero(t, w.runner.Count("net session"))
}

func TestRun_RootNeedsNoPrefix(t *testing.T) {
	w := newWorld(t)
	w.runner.RemoveBin("sudo")
	w.host.Root = true

	report, err := w.run(Options{Only: []string{StepSystemPackages}})
	require.NoError(t, err)
	assert.Equal(t, StatusChanged, statusOf(t, report, StepSystemPackages))
	assert.Equal(t, 1, w.runner.Count("apt-get install"))
	assert.Zero(t, w.runner.Count("sudo"))
}

func TestRun_NoPackageManager(t *testing.T) {
	w := newWorld(t)
	w.runner.RemoveBin("apt-get")

	report, err := w.run(Options{})
	require.NoError(t, err, "missing package manager degrades, never aborts")

	assert.Equal(t, StatusWarning, statusOf(t, report, StepPackageManager))
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepElevation))
	assert.Equal(t, StatusWarning, statusOf(t, report, StepSystemPackages))
	assert.Equal(t, StatusWarning, statusOf(t, report, StepJDK))
	assert.Equal(t, StatusWarning, statusOf(t, report, StepVSCode))
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepVSCodeExtensions))
	assert.Equal(t, StatusChanged, statusOf(t, report, StepAndroidSDK), "direct downloads still work")
	assert.Equal(t, StatusChanged, statusOf(t, report, StepRustToolchain))

	res, _ := report.Get(StepSystemPackages)
	assert.Contains(t, res.Message, "please install manually")
	assert.Contains(t, report.Manual, "JDK 17")
	assert.Contains(t, report.Manual, "Visual Studio Code")
	assert.Contains(t, strings.Join(report.NextSteps, "\n"), "install manually")
}

func TestRun_ForcedNone(t *testing.T) {
	w := newWorld(t)

	report, err := w.run(Options{PackageManager: "none", Only: []string{StepSystemPackages}})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepPackageManager))
	assert.Equal(t, StatusWarning, statusOf(t, report, StepSystemPackages))
	assert.Zero(t, w.runner.Count("dpkg-query"))
}

func TestRun_DownloadUnavailable(t *testing.T) {
	w := newWorld(t)
	w.fetcher.fail["https://dl.google.com/"] = errors.New("no route to host")

	report, err := w.run(Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDownloadUnavailable)
	assert.Equal(t, errors.ExitSystem, errors.ExitCode(err))
	assert.Equal(t, StatusFatal, statusOf(t, report, StepAndroidSDK))
	assert.Equal(t, StatusChanged, statusOf(t, report, StepJDK), "earlier steps keep their effects")

	// Re-run after the network recovers: earlier work is not repeated.
	delete(w.fetcher.fail, "https://dl.google.com/")
	aptInstalls := w.runner.Count("sudo apt-get install")

	report, err = w.run(Options{})
	require.NoError(t, err)
	assert.Equal(t, aptInstalls+1, w.runner.Count("sudo apt-get install"), "only VS Code is left for apt")
	assert.Equal(t, StatusOK, statusOf(t, report, StepSystemPackages))
	assert.Equal(t, StatusOK, statusOf(t, report, StepJDK))
	assert.Equal(t, StatusChanged, statusOf(t, report, StepAndroidSDK))
	assert.Equal(t, 1, strings.Count(w.profile(), "export JAVA_HOME="))
}

func TestRun_ExistingSDKSurvivesOffline(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, afero.WriteFile(w.fs, w.sdkmanager(), []byte("stub"), 0o755))
	w.fetcher.fail["https://"] = errors.New("offline")

	report, err := w.run(Options{Only: []string{StepAndroidSDK}})
	require.NoError(t, err)
	assert.Equal(t, StatusChanged, statusOf(t, report, StepAndroidSDK))
	assert.Empty(t, w.fetcher.calls)
}

func TestRun_LicenseFailureIsWarning(t *testing.T) {
	w := newWorld(t)
	w.licenseFail = true

	report, err := w.run(Options{})
	require.NoError(t, err)

	res, _ := report.Get(StepAndroidSDK)
	assert.Equal(t, StatusWarning, res.Status)
	assert.True(t, res.Changed)
	assert.Contains(t, res.Message, "license")
	assert.Equal(t, StatusChanged, statusOf(t, report, StepFlutterSDK), "run continues")
	assert.Contains(t, strings.Join(report.NextSteps, "\n"), "flutter doctor --android-licenses")
}

func TestRun_AssumeYesInstallsOptionalTools(t *testing.T) {
	w := newWorld(t)
	w.mode = prompt.ModeAssumeYes

	report, err := w.run(Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusChanged, statusOf(t, report, StepCommitHelper))
	assert.Equal(t, StatusChanged, statusOf(t, report, StepSampleApp))
	assert.Equal(t, 1, w.runner.Count(w.cargoBin()+"/cargo install cocogitto"))

	report, err = w.run(Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, statusOf(t, report, StepCommitHelper))
	assert.Equal(t, StatusOK, statusOf(t, report, StepSampleApp))
	assert.Equal(t, 1, w.runner.Count(w.flutter()+"/bin/flutter create"))
}

func TestRun_FlutterTracksBranch(t *testing.T) {
	w := newWorld(t)
	_, err := w.run(Options{Only: []string{StepFlutterSDK}})
	require.NoError(t, err)

	w.runner.On("git -C "+w.flutter()+" reset --hard origin/stable", func(shell.Cmd) (shell.Result, error) {
		w.head = "9a8b7c6"
		return shell.Result{}, nil
	})
	report, err := w.run(Options{Only: []string{StepFlutterSDK}})
	require.NoError(t, err)
	assert.Equal(t, StatusChanged, statusOf(t, report, StepFlutterSDK))
	assert.Equal(t, 1, w.runner.Count("git -C "+w.flutter()+" fetch origin stable"))
	assert.Equal(t, 1, w.runner.Count("git clone"))
}

func TestRun_FlutterOutsideManagedDirIsLeftAlone(t *testing.T) {
	w := newWorld(t)
	w.runner.AddBin("flutter", "/opt/flutter/bin")

	report, err := w.run(Options{Only: []string{StepFlutterSDK}})
	require.NoError(t, err)
	res, _ := report.Get(StepFlutterSDK)
	assert.Equal(t, StatusOK, res.Status)
	assert.Contains(t, res.Message, "/opt/flutter/bin/flutter")
	assert.Zero(t, w.runner.Count("git"))
}

func TestRun_BrewNeedsNoElevation(t *testing.T) {
	w := newWorld(t)
	w.host.OS = platform.Darwin
	w.runner.RemoveBin("apt-get")
	w.runner.RemoveBin("sudo")
	w.runner.AddBin("brew", "/opt/homebrew/bin")

	report, err := w.run(Options{Only: []string{StepVSCode}})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, statusOf(t, report, StepElevation))
	assert.Equal(t, StatusChanged, statusOf(t, report, StepVSCode))
	assert.Equal(t, 1, w.runner.Count("brew install --cask visual-studio-code"))
}

func TestPlan_HasNoSideEffects(t *testing.T) {
	w := newWorld(t)

	report, err := w.plan()
	require.NoError(t, err)

	assert.Zero(t, w.installs())
	assert.Empty(t, w.fetcher.calls)
	assert.Empty(t, w.profile())
	assert.Equal(t, "plan", report.Mode)
	assert.Empty(t, report.NextSteps)
	for _, id := range []string{StepSystemPackages, StepJDK, StepAndroidSDK, StepFlutterSDK, StepRustToolchain} {
		assert.Equal(t, StatusPending, statusOf(t, report, id), id)
	}
	res, _ := report.Get(StepSystemPackages)
	assert.Contains(t, res.Message, "would install")
}

func TestNew_Filtering(t *testing.T) {
	w := newWorld(t)

	_, err := New(w.deps(), Options{Only: []string{"jdk", "bogus"}})
	assert.ErrorIs(t, err, ErrUnknownStep)

	report, err := w.run(Options{Skip: []string{StepSystemPackages, StepAndroidSDK}})
	require.NoError(t, err)
	res, _ := report.Get(StepSystemPackages)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "filtered", res.Message)
	assert.Equal(t, StatusOK, statusOf(t, report, StepPackageManager), "prerequisites always run")
	assert.Equal(t, StatusChanged, statusOf(t, report, StepJDK))
	assert.Zero(t, w.runner.Count("sudo apt-get install -y --no-install-recommends git"))
}

func TestReport_Write(t *testing.T) {
	w := newWorld(t)
	report, err := w.run(Options{Only: []string{StepJDK}})
	require.NoError(t, err)

	require.NoError(t, w.fs.MkdirAll("/out", 0o755))
	require.NoError(t, report.Write(w.fs, "/out/report.json"))
	data, err := afero.ReadFile(w.fs, "/out/report.json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run", decoded["mode"])
	assert.Len(t, decoded["results"], len(StepIDs()))

	require.NoError(t, report.Write(w.fs, "/out/report.yaml"))
	data, err = afero.ReadFile(w.fs, "/out/report.yaml")
	require.NoError(t, err)
	var decodedYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decodedYAML))
	assert.Equal(t, "apt", decodedYAML["package_manager"])

	assert.Error(t, report.Write(w.fs, "/out/report.txt"))
}

func TestParseInstalledPackages(t *testing.T) {
	out := `Installed packages:
  Path                 | Version | Description                | Location
  -------              | ------- | -------                    | -------
  build-tools;34.0.0   | 34.0.0  | Android SDK Build-Tools 34 | build-tools/34.0.0
  platform-tools       | 35.0.1  | Android SDK Platform-Tools | platform-tools
`
	assert.Equal(t, []string{"build-tools;34.0.0", "platform-tools"}, ParseInstalledPackages(out))
	assert.Empty(t, ParseInstalledPackages(""))
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/home/dev/development/flutter/bin/flutter", "/home/dev/development/flutter"))
	assert.False(t, within("/home/dev/development/flutter-old/bin/flutter", "/home/dev/development/flutter"))
	assert.False(t, within("/opt/flutter/bin/flutter", "/home/dev/development/flutter"))
}

func TestAndroidPathDirs(t *testing.T) {
	s := NewSession(newWorld(t).deps(), "")
	root := "/home/dev/Android/Sdk"

	tests := []struct {
		name       string
		sdkmanager string
		want       []string
	}{
		{
			name:       "managed cmdline-tools",
			sdkmanager: root + "/cmdline-tools/latest/bin/sdkmanager",
			want:       []string{root + "/cmdline-tools/latest/bin", root + "/platform-tools", root + "/emulator"},
		},
		{
			name:       "sdkmanager from the system",
			sdkmanager: "/usr/bin/sdkmanager",
			want:       []string{root + "/platform-tools", root + "/emulator"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &androidStep{root: root, sdkmanager: tt.sdkmanager}
			assert.Equal(t, tt.want, st.pathDirs(s))
		})
	}
}
