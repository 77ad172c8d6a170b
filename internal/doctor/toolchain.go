package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/shell"
)

// VersionCheck runs a tool's self-report command and surfaces its output.
type VersionCheck struct {
	runner shell.Runner
	fs     afero.Fs

	// Binary is located on the search path.
	Binary string

	// Args are passed to Binary, e.g. ["--version"].
	Args []string

	// Fallback is an absolute path tried when Binary is not on the search
	// path, e.g. the sdkmanager inside a freshly installed SDK.
	Fallback string
}

var _ Check = (*VersionCheck)(nil)

// NewVersionCheck creates a self-report check for binary.
func NewVersionCheck(r shell.Runner, fs afero.Fs, binary string, args ...string) *VersionCheck {
	return &VersionCheck{runner: r, fs: fs, Binary: binary, Args: args}
}

// WithFallback sets the absolute path used when Binary is not on the search path.
func (c *VersionCheck) WithFallback(path string) *VersionCheck {
	c.Fallback = path
	return c
}

// Name returns the unique identifier for this check.
func (c *VersionCheck) Name() string {
	return c.Binary + "-version"
}

// Category returns the grouping for this check.
func (c *VersionCheck) Category() string {
	return "toolchain"
}

// Run executes the self-report command.
func (c *VersionCheck) Run(ctx context.Context) *CheckResult {
	bin, ok := c.resolve()
	if !ok {
		return &CheckResult{
			Status:  SeverityWarning,
			Message: c.Binary + " not found on PATH",
			FixHint: "restart the shell or re-run provision run",
		}
	}

	cmd := strings.Join(append([]string{c.Binary}, c.Args...), " ")
	res, err := c.runner.Run(ctx, shell.Command(bin, c.Args...))
	out := combined(res)
	if err != nil {
		return &CheckResult{
			Status:  SeverityError,
			Message: fmt.Sprintf("%s failed: %v", cmd, err),
			Output:  out,
		}
	}

	return &CheckResult{
		Status:  SeverityPass,
		Message: firstLine(out),
		Output:  out,
		Details: map[string]any{"path": bin},
	}
}

func (c *VersionCheck) resolve() (string, bool) {
	if p, err := c.runner.LookPath(c.Binary); err == nil {
		return p, true
	}
	if c.Fallback == "" || c.fs == nil {
		return "", false
	}
	ok, err := afero.Exists(c.fs, c.Fallback)
	return c.Fallback, err == nil && ok
}

// FlutterDoctorCheck runs "flutter doctor" and reports each flagged section.
type FlutterDoctorCheck struct {
	runner shell.Runner
}

var _ Check = (*FlutterDoctorCheck)(nil)

// NewFlutterDoctorCheck creates the flutter doctor check.
func NewFlutterDoctorCheck(r shell.Runner) *FlutterDoctorCheck {
	return &FlutterDoctorCheck{runner: r}
}

// Name returns the unique identifier for this check.
func (c *FlutterDoctorCheck) Name() string {
	return "flutter-doctor"
}

// Category returns the grouping for this check.
func (c *FlutterDoctorCheck) Category() string {
	return "toolchain"
}

// Run executes flutter doctor. Lines marked [!] or [✗] become issues;
// a non-zero exit alone does not.
func (c *FlutterDoctorCheck) Run(ctx context.Context) *CheckResult {
	if !shell.Has(c.runner, "flutter") {
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "flutter not found on PATH",
			FixHint: "restart the shell so the flutter bin directory is on PATH",
		}
	}

	res, err := c.runner.Run(ctx, shell.Command("flutter", "doctor"))
	out := combined(res)
	issues := flaggedSections(out)

	switch {
	case len(issues) > 0:
		return &CheckResult{
			Status:  SeverityWarning,
			Message: fmt.Sprintf("flutter doctor reported %d issue(s)", len(issues)),
			Output:  out,
			Details: map[string]any{"issues": issues},
			FixHint: "flutter doctor --android-licenses",
		}
	case err != nil:
		return &CheckResult{
			Status:  SeverityError,
			Message: fmt.Sprintf("flutter doctor failed: %v", err),
			Output:  out,
		}
	}

	return &CheckResult{
		Status:  SeverityPass,
		Message: "no issues found",
		Output:  out,
	}
}

func flaggedSections(out string) []string {
	var issues []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[!]") || strings.HasPrefix(line, "[✗]") || strings.HasPrefix(line, "[X]") {
			issues = append(issues, line)
		}
	}
	return issues
}

// combined returns stdout followed by stderr; java reports on stderr.
func combined(res shell.Result) string {
	out := strings.TrimSpace(string(res.Stdout))
	errOut := strings.TrimSpace(string(res.Stderr))
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	}
	return out + "\n" + errOut
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
