package provision

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/cli/prompt"
	"github.com/thoreinstein/provision/internal/config"
	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/paths"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

const (
	home    = "/home/dev"
	profile = "/home/dev/.bashrc"
	jvmRoot = "/usr/lib/jvm/java-17-openjdk-amd64"
)

// world is a fake Debian host: apt, sudo and git are present, nothing
// else is installed. Handlers mutate the world the way the real tools
// would so repeated runs observe earlier installs.
type world struct {
	t       *testing.T
	fs      afero.Fs
	runner  *shell.FakeRunner
	env     envstore.MapEnv
	store   *envstore.ProfileStore
	backups *backup.Manager
	fetcher *fakeFetcher
	host    *platform.Host
	cfg     *config.Config
	mode    prompt.Mode

	apt         map[string]bool
	sdk         []string
	extensions  []string
	targets     []string
	hasDefault  bool
	head        string
	licenseFail bool
}

func newWorld(t *testing.T) *world {
	t.Helper()

	fs := afero.NewMemMapFs()
	env := envstore.MapEnv{"PATH": "/usr/bin:/bin"}
	w := &world{
		t:       t,
		fs:      fs,
		runner:  shell.NewFakeRunner("apt-get", "dpkg-query", "sudo", "git", "sh"),
		env:     env,
		store:   envstore.NewProfileStore(fs, profile, env),
		backups: backup.NewManager(backup.WithFs(fs), backup.WithBackupDir("/state/backups")),
		host: &platform.Host{
			OS: platform.Linux, Arch: "amd64", Distro: "ubuntu", DistroVersion: "24.04",
			Shell: "/bin/bash", Home: home,
		},
		cfg:  testConfig(),
		mode: prompt.ModeDefaults,
		apt:  map[string]bool{},
		head: "3f1c2d0",
	}
	w.store.BeforeWrite = backup.NewGuard(w.backups).EnsureBackedUp
	w.fetcher = &fakeFetcher{fs: fs, fail: map[string]error{}, zip: cmdlineToolsZip(t)}
	w.routes()
	return w
}

func testConfig() *config.Config {
	return &config.Config{
		Version: 1,
		JDK:     config.JDK{Version: 17},
		Android: config.Android{
			CmdlineToolsBuild: "11076708",
			Platform:          "android-34",
			BuildTools:        "34.0.0",
			Emulator:          true,
		},
		Flutter: config.Flutter{Repo: "https://github.com/flutter/flutter.git", Channel: "stable"},
		VSCode:  config.VSCode{Extensions: []string{"Dart-Code.dart-code", "Dart-Code.flutter", "rust-lang.rust-analyzer"}},
		Rust: config.Rust{
			Targets: []string{"aarch64-linux-android", "armv7-linux-androideabi"},
			Tools:   []string{"flutter_rust_bridge_codegen", "cargo-ndk"},
		},
		SampleApp: config.SampleApp{Dir: "/work/sample_app"},
		Backup:    config.Backup{Retention: 5},
		Download:  config.Download{Attempts: 3},
	}
}

func (w *world) sdkRoot() string  { return paths.AndroidSDKRoot(platform.Linux, home) }
func (w *world) flutter() string  { return paths.FlutterDir(home) }
func (w *world) cargoBin() string { return paths.CargoBin(home) }
func (w *world) sdkmanager() string {
	return filepath.Join(w.sdkRoot(), "cmdline-tools", "latest", "bin", "sdkmanager")
}

func (w *world) routes() {
	r := w.runner

	r.On("dpkg-query -W -f=${Status} ", func(c shell.Cmd) (shell.Result, error) {
		pkg := c.Args[len(c.Args)-1]
		if w.apt[pkg] {
			return shell.Result{Stdout: []byte("install ok installed")}, nil
		}
		return exit(c, 1, "dpkg-query: no packages found matching "+pkg)
	})
	r.On("sudo apt-get install", func(c shell.Cmd) (shell.Result, error) {
		i := slices.Index(c.Args, "--no-install-recommends")
		for _, pkg := range c.Args[i+1:] {
			w.apt[pkg] = true
			switch pkg {
			case "openjdk-17-jdk":
				r.AddBin("javac", "")
				r.AddBin("java", "")
			case "code":
				r.AddBin("code", "")
			}
		}
		return shell.Result{}, nil
	})
	r.Reply("/usr/bin/javac -version", "javac 17.0.9\n")

	r.On(w.sdkmanager(), func(c shell.Cmd) (shell.Result, error) {
		if len(c.Args) < 2 {
			// "sdkmanager --version" from the diagnostics pass
			return shell.Result{Stdout: []byte("12.0\n")}, nil
		}
		args := c.Args[1:]
		switch args[0] {
		case "--licenses":
			if w.licenseFail {
				return exit(c, 1, "Failed to read or create install properties file.")
			}
		case "--list_installed":
			var b strings.Builder
			b.WriteString("Installed packages:\n  Path | Version | Description | Location\n  ------- | ------- | ------- | -------\n")
			for _, p := range w.sdk {
				b.WriteString("  " + p + " | 1.0 | " + p + " | " + p + "\n")
			}
			return shell.Result{Stdout: []byte(b.String())}, nil
		default:
			w.sdk = append(w.sdk, args...)
		}
		return shell.Result{}, nil
	})

	dir := w.flutter()
	r.On("git clone", func(c shell.Cmd) (shell.Result, error) {
		require.NoError(w.t, w.fs.MkdirAll(filepath.Join(dir, ".git"), 0o755))
		require.NoError(w.t, afero.WriteFile(w.fs, filepath.Join(dir, "bin", "flutter"), nil, 0o755))
		r.AddBin("flutter", filepath.Join(dir, "bin"))
		return shell.Result{}, nil
	})
	r.On("git -C "+dir+" rev-parse HEAD", func(shell.Cmd) (shell.Result, error) {
		return shell.Result{Stdout: []byte(w.head + "\n")}, nil
	})
	r.Reply("git -C "+dir+" rev-parse --abbrev-ref HEAD", "stable\n")
	r.On(filepath.Join(dir, "bin", "flutter")+" create", func(c shell.Cmd) (shell.Result, error) {
		require.NoError(w.t, w.fs.MkdirAll(c.Args[1], 0o755))
		return shell.Result{}, nil
	})

	r.On("/usr/bin/code --list-extensions", func(shell.Cmd) (shell.Result, error) {
		return shell.Result{Stdout: []byte(strings.Join(w.extensions, "\n"))}, nil
	})
	r.On("/usr/bin/code --install-extension", func(c shell.Cmd) (shell.Result, error) {
		w.extensions = append(w.extensions, strings.ToLower(c.Args[1]))
		return shell.Result{}, nil
	})

	bin := w.cargoBin()
	r.On("sh -s -- -y --no-modify-path", func(c shell.Cmd) (shell.Result, error) {
		require.NotEmpty(w.t, c.Stdin, "rustup-init script is piped on stdin")
		for _, b := range []string{"rustup", "cargo", "rustc"} {
			r.AddBin(b, bin)
		}
		w.hasDefault = true
		return shell.Result{}, nil
	})
	rustup := filepath.Join(bin, "rustup")
	r.On(rustup+" default", func(c shell.Cmd) (shell.Result, error) {
		if len(c.Args) > 1 {
			w.hasDefault = true
			return shell.Result{}, nil
		}
		if !w.hasDefault {
			return exit(c, 1, "error: no default toolchain configured")
		}
		return shell.Result{Stdout: []byte("stable-x86_64-unknown-linux-gnu (default)\n")}, nil
	})
	r.On(rustup+" target list --installed", func(shell.Cmd) (shell.Result, error) {
		return shell.Result{Stdout: []byte(strings.Join(append([]string{"x86_64-unknown-linux-gnu"}, w.targets...), "\n"))}, nil
	})
	r.On(rustup+" target add", func(c shell.Cmd) (shell.Result, error) {
		w.targets = append(w.targets, c.Args[2:]...)
		return shell.Result{}, nil
	})
	r.On(filepath.Join(bin, "cargo")+" install", func(c shell.Cmd) (shell.Result, error) {
		r.AddBin(cargoBinary(c.Args[1]), bin)
		return shell.Result{}, nil
	})
}

func cargoBinary(crate string) string {
	if crate == "cocogitto" {
		return "cog"
	}
	return crate
}

func exit(c shell.Cmd, code int, stderr string) (shell.Result, error) {
	return shell.Result{Stderr: []byte(stderr), ExitCode: code},
		&shell.CommandError{Line: c.Line(), ExitCode: code, Stderr: stderr}
}

func (w *world) deps() Deps {
	return Deps{
		Host:     w.host,
		Config:   w.cfg,
		Runner:   w.runner,
		Fs:       w.fs,
		Env:      w.env,
		Store:    w.store,
		Fetcher:  w.fetcher,
		Prompt:   prompt.NewWithIO(strings.NewReader(""), io.Discard, w.mode),
		Profile:  profile,
		CacheDir: "/cache/provision/downloads",
		EvalSymlinks: func(p string) (string, error) {
			if p == "/usr/bin/javac" {
				return jvmRoot + "/bin/javac", nil
			}
			return p, nil
		},
	}
}

func (w *world) ctx() context.Context {
	return logging.NewContext(context.Background(), logging.ForTest(w.t))
}

func (w *world) run(opts Options) (*Report, error) {
	w.t.Helper()
	p, err := New(w.deps(), opts)
	require.NoError(w.t, err)
	return p.Run(w.ctx())
}

func (w *world) plan() (*Report, error) {
	w.t.Helper()
	p, err := New(w.deps(), Options{})
	require.NoError(w.t, err)
	return p.Plan(w.ctx())
}

func (w *world) profile() string {
	w.t.Helper()
	data, err := afero.ReadFile(w.fs, profile)
	if errors.Is(err, afero.ErrFileNotFound) {
		return ""
	}
	require.NoError(w.t, err)
	return string(data)
}

// installs counts commands that change the host.
func (w *world) installs() int {
	n := 0
	for _, prefix := range []string{
		"sudo apt-get", "git clone", "sh -s", w.sdkmanager() + " --sdk_root=" + w.sdkRoot() + " platform",
		"/usr/bin/code --install-extension", filepath.Join(w.cargoBin(), "cargo") + " install",
		filepath.Join(w.cargoBin(), "rustup") + " target add",
	} {
		n += w.runner.Count(prefix)
	}
	return n
}

type fakeFetcher struct {
	fs    afero.Fs
	fail  map[string]error
	calls []string
	zip   []byte
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) error {
	f.calls = append(f.calls, url)
	for prefix, err := range f.fail {
		if strings.HasPrefix(url, prefix) {
			return err
		}
	}
	body := []byte("#!/bin/sh\necho installing rustup\n")
	if strings.Contains(url, "commandlinetools") {
		body = f.zip
	}
	if err := f.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, dest, body, 0o644)
}

func cmdlineToolsZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"cmdline-tools/bin/sdkmanager", "cmdline-tools/lib/sdkmanager-classpath.jar"} {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o755)
		fw, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = fw.Write([]byte("stub"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
