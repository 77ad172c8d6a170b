package doctor

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/shell"
)

func TestVersionCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("reports first line", func(t *testing.T) {
		r := shell.NewFakeRunner("rustc")
		r.Reply("/usr/bin/rustc --version", "rustc 1.81.0 (eeb90cda1 2024-09-04)\n")

		res := NewVersionCheck(r, nil, "rustc", "--version").Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
		assert.Equal(t, "rustc 1.81.0 (eeb90cda1 2024-09-04)", res.Message)
	})

	t.Run("java reports on stderr", func(t *testing.T) {
		r := shell.NewFakeRunner("java")
		r.On("/usr/bin/java -version", func(shell.Cmd) (shell.Result, error) {
			return shell.Result{Stderr: []byte("openjdk version \"17.0.9\"\nOpenJDK Runtime\n")}, nil
		})

		res := NewVersionCheck(r, nil, "java", "-version").Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
		assert.Equal(t, `openjdk version "17.0.9"`, res.Message)
	})

	t.Run("missing binary", func(t *testing.T) {
		r := shell.NewFakeRunner()
		res := NewVersionCheck(r, nil, "cargo", "--version").Run(ctx)
		assert.Equal(t, SeverityWarning, res.Status)
		assert.Contains(t, res.Message, "not found")
	})

	t.Run("failure surfaces output", func(t *testing.T) {
		r := shell.NewFakeRunner("flutter")
		r.Fail("/usr/bin/flutter --version", 1, "boom")

		res := NewVersionCheck(r, nil, "flutter", "--version").Run(ctx)
		assert.Equal(t, SeverityError, res.Status)
		assert.Equal(t, "boom", res.Output)
	})

	t.Run("fallback path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		sdk := "/sdk/cmdline-tools/latest/bin/sdkmanager"
		require.NoError(t, afero.WriteFile(fs, sdk, []byte{}, 0o755))

		r := shell.NewFakeRunner()
		r.Reply(sdk+" --version", "11.0\n")

		res := NewVersionCheck(r, fs, "sdkmanager", "--version").WithFallback(sdk).Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
		assert.Equal(t, "11.0", res.Message)
	})
}

func TestFlutterDoctorCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("clean", func(t *testing.T) {
		r := shell.NewFakeRunner("flutter")
		r.Reply("flutter doctor", "[✓] Flutter (Channel stable)\n[✓] Android toolchain\n")

		res := NewFlutterDoctorCheck(r).Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
	})

	t.Run("flagged sections", func(t *testing.T) {
		r := shell.NewFakeRunner("flutter")
		r.On("flutter doctor", func(c shell.Cmd) (shell.Result, error) {
			out := "[✓] Flutter\n[!] Android toolchain\n    ✗ Android licenses not accepted\n[✗] Chrome\n"
			return shell.Result{Stdout: []byte(out), ExitCode: 1}, &shell.CommandError{Line: c.Line(), ExitCode: 1}
		})

		res := NewFlutterDoctorCheck(r).Run(ctx)
		assert.Equal(t, SeverityWarning, res.Status)
		assert.Equal(t, []string{"[!] Android toolchain", "[✗] Chrome"}, res.Details["issues"])
		assert.Contains(t, res.Output, "Android licenses not accepted")
	})

	t.Run("missing", func(t *testing.T) {
		res := NewFlutterDoctorCheck(shell.NewFakeRunner()).Run(ctx)
		assert.Equal(t, SeverityWarning, res.Status)
	})
}

func TestDuplicatePathCheck(t *testing.T) {
	env := envstore.MapEnv{"PATH": "/usr/bin:/home/dev/.cargo/bin:/bin:/home/dev/.cargo/bin"}
	res := NewDuplicatePathCheck(env, ':').Run(context.Background())
	assert.Equal(t, SeverityWarning, res.Status)
	assert.Equal(t, []string{"/home/dev/.cargo/bin"}, res.Details["duplicates"])

	env["PATH"] = "/usr/bin:/bin"
	res = NewDuplicatePathCheck(env, ':').Run(context.Background())
	assert.Equal(t, SeverityPass, res.Status)
}

func TestBindingCheck(t *testing.T) {
	ctx := context.Background()
	store := envstore.NewMemoryStore(nil)
	_, err := store.EnsureBinding(ctx, envstore.Binding{Name: "JAVA_HOME", Value: "/usr/lib/jvm/java-17"})
	require.NoError(t, err)

	res := NewBindingCheck(store, "JAVA_HOME", "ANDROID_HOME").Run(ctx)
	assert.Equal(t, SeverityWarning, res.Status)
	assert.Contains(t, res.Message, "ANDROID_HOME")

	_, err = store.EnsureBinding(ctx, envstore.Binding{Name: "ANDROID_HOME", Value: "/sdk"})
	require.NoError(t, err)
	res = NewBindingCheck(store, "JAVA_HOME", "ANDROID_HOME").Run(ctx)
	assert.Equal(t, SeverityPass, res.Status)
}

func TestProfileCheck(t *testing.T) {
	ctx := context.Background()
	const profile = "/home/dev/.bashrc"

	t.Run("missing profile passes", func(t *testing.T) {
		c := NewProfileCheck(afero.NewMemMapFs(), profile)
		assert.Equal(t, SeverityPass, c.Run(ctx).Status)
		assert.False(t, c.CanFix())
	})

	t.Run("directory is an error", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll(profile, 0o755))

		res := NewProfileCheck(fs, profile).Run(ctx)
		assert.Equal(t, SeverityError, res.Status)
	})

	t.Run("world-writable is fixed", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, profile, []byte("export A=\"b\"\n"), 0o666))
		require.NoError(t, fs.Chmod(profile, 0o666))

		r := NewRunner()
		c := NewProfileCheck(fs, profile)
		r.AddCheck(c)

		report := r.Run(ctx)
		require.Len(t, report.Results, 1)
		assert.Equal(t, SeverityWarning, report.Results[0].Status)
		assert.True(t, report.Results[0].Fixable)
		assert.Equal(t, 1, c.CountFixable())

		fixes := r.Fix()
		require.Len(t, fixes, 1)
		assert.True(t, fixes[0].Fixed)

		info, err := fs.Stat(profile)
		require.NoError(t, err)
		assert.Equal(t, "0644", formatPermissions(info.Mode()))
	})
}

func TestRepairedMode(t *testing.T) {
	tests := []struct {
		in, want os.FileMode
	}{
		{0o666, 0o644},
		{0o777, 0o755},
		{0o000, 0o600},
		{0o600, 0o600},
		{0o620, 0o600},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repairedMode(tt.in), "repairedMode(%04o)", tt.in)
	}
}

func TestProfileCheck_FixIsOneShot(t *testing.T) {
	fs := afero.NewMemMapFs()
	const profile = "/home/dev/.zshrc"
	require.NoError(t, afero.WriteFile(fs, profile, nil, 0o662))
	require.NoError(t, fs.Chmod(profile, 0o662))

	c := NewProfileCheck(fs, profile)
	c.Run(context.Background())
	fixes := c.Fix()
	require.Len(t, fixes, 1)
	assert.Equal(t, "mode 0662 -> 0640", fixes[0].Description)
	assert.False(t, c.CanFix())
	assert.Empty(t, c.Fix())
}
