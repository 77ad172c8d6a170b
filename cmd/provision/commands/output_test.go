package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/config"
	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/provision"
)

func init() {
	color.NoColor = true
}

func TestPrintSummary(t *testing.T) {
	r := &provision.Report{
		Host: "linux/amd64 (ubuntu 24.04)",
		Mode: "run",
		Results: []provision.StepResult{
			{ID: "jdk", Status: provision.StatusChanged, Message: "installed JDK 17"},
			{ID: "vscode", Status: provision.StatusWarning, Message: "please install Visual Studio Code manually"},
		},
		Counts:    map[provision.Status]int{provision.StatusChanged: 1, provision.StatusWarning: 1},
		NextSteps: []string{"install manually: Visual Studio Code"},
	}

	var buf bytes.Buffer
	printSummary(&buf, r)
	out := buf.String()

	for _, want := range []string{
		"STEP", "jdk", "installed JDK 17",
		"run on linux/amd64 (ubuntu 24.04): 1 changed, 1 warning",
		"Next steps:", "  - install manually: Visual Studio Code",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "stopped:") {
		t.Error("no fatal step, no stopped line")
	}
}

func TestResolveCatalog(t *testing.T) {
	cfg := &config.Config{
		JDK:     config.JDK{Version: 17},
		Android: config.Android{Platform: "android-34", BuildTools: "34.0.0"},
		VSCode:  config.VSCode{Extensions: []string{"Dart-Code.flutter"}},
		Rust:    config.Rust{Targets: []string{"aarch64-linux-android"}, Tools: []string{"cargo-ndk"}},
	}
	cat := catalog.Default(provision.CatalogOptions(cfg))

	rows := resolveCatalog(cat, "apt")
	byID := make(map[string]catalogRow)
	for _, r := range rows {
		byID[r.ID] = r
	}

	tests := []struct {
		id, installer, pkg string
	}{
		{"jdk", "apt", "openjdk-17-jdk"},
		{"cmdline-tools", "download", ""},
		{"build-tools", "sdkmanager", "build-tools;34.0.0"},
		{"flutter", "git", ""},
		{"ext:dart-code.flutter", "code", "Dart-Code.flutter"},
		{"rustup", "rustup-init", ""},
		{"target:aarch64-linux-android", "rustup", "aarch64-linux-android"},
		{"cargo-ndk", "cargo", "cargo-ndk"},
		{"cocogitto", "cargo", "cocogitto"},
	}
	for _, tt := range tests {
		got, ok := byID[tt.id]
		if !ok {
			t.Errorf("%s missing from catalog", tt.id)
			continue
		}
		if got.Installer != tt.installer || got.Package != tt.pkg {
			t.Errorf("%s = %s/%q, want %s/%q", tt.id, got.Installer, got.Package, tt.installer, tt.pkg)
		}
	}

	for _, r := range resolveCatalog(cat, "winget") {
		if r.ID == "rustup" && (r.Installer != "winget" || r.Package != "Rustlang.Rustup") {
			t.Errorf("rustup on winget = %s/%q", r.Installer, r.Package)
		}
	}
}

func TestDoctorExit(t *testing.T) {
	warnings := &doctor.Report{Summary: doctor.Summary{Warnings: 1}}
	failures := &doctor.Report{Summary: doctor.Summary{Warnings: 1, Errors: 1}}
	clean := &doctor.Report{Summary: doctor.Summary{Passed: 3}}

	tests := []struct {
		name   string
		report *doctor.Report
		strict bool
		want   int
	}{
		{"advisory warnings", warnings, false, errors.ExitSuccess},
		{"advisory errors", failures, false, errors.ExitSuccess},
		{"strict clean", clean, true, errors.ExitSuccess},
		{"strict warnings", warnings, true, errors.ExitUser},
		{"strict errors", failures, true, errors.ExitSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.ExitCode(doctorExit(tt.report, tt.strict)); got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOutputDoctorText(t *testing.T) {
	report := &doctor.Report{
		Results: []*doctor.CheckResult{
			{Name: "java", Category: "toolchain", Status: doctor.SeverityPass, Message: "openjdk 17"},
			{Name: "profile", Category: "environment", Status: doctor.SeverityWarning,
				Message: "world-writable", FixHint: "run provision doctor --fix"},
		},
		Summary: doctor.Summary{Passed: 1, Warnings: 1},
	}

	var buf bytes.Buffer
	outputDoctorText(&buf, report, false)
	out := buf.String()
	if strings.Contains(out, "openjdk 17") {
		t.Error("passed checks are hidden without --verbose")
	}
	if !strings.Contains(out, "⚠ [environment] profile: world-writable") || !strings.Contains(out, "hint: run provision doctor --fix") {
		t.Errorf("warning not rendered:\n%s", out)
	}
	if !strings.Contains(out, "Summary: 1 passed, 0 info, 1 warnings, 0 errors") {
		t.Errorf("summary missing:\n%s", out)
	}

	buf.Reset()
	outputDoctorText(&buf, report, true)
	if !strings.Contains(buf.String(), "✓ [toolchain] java: openjdk 17") {
		t.Errorf("verbose output missing passed check:\n%s", buf.String())
	}
}
