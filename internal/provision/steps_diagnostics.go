package provision

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/platform"
)

// Bindings the diagnostics expect to be persisted.
var diagnosedBindings = []string{"JAVA_HOME", "ANDROID_HOME", "ANDROID_SDK_ROOT"}

type diagnosticsStep struct{ note }

func (*diagnosticsStep) ID() string    { return StepDiagnostics }
func (*diagnosticsStep) Title() string { return "Diagnostics" }

func (st *diagnosticsStep) Check(context.Context, *Session) (Status, error) {
	st.say("would run diagnostics")
	return StatusPending, nil
}

func (*diagnosticsStep) Apply(ctx context.Context, s *Session) StepResult {
	logger := logging.FromContext(ctx)

	report := Doctor(s).Run(ctx)
	s.Diagnostics = report

	problems := report.Problems()
	if len(problems) == 0 {
		return unchanged("%d checks passed", len(report.Results))
	}

	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		logger.Warn(p.Name+": "+p.Message, "output", p.Output)
		msgs = append(msgs, p.Name+": "+p.Message)
	}
	return StepResult{Status: StatusAdvisory, Message: strings.Join(msgs, "; ")}
}

// Doctor assembles the diagnostic checks for the session's host.
func Doctor(s *Session) *doctor.Runner {
	sdkmanager := "sdkmanager"
	if s.Host.OS == platform.Windows {
		sdkmanager = "sdkmanager.bat"
	}

	r := doctor.NewRunner()
	r.AddCheck(doctor.NewVersionCheck(s.Runner, s.Fs, "java", "-version"))
	r.AddCheck(doctor.NewVersionCheck(s.Runner, s.Fs, "flutter", "--version").
		WithFallback(filepath.Join(s.flutterDir(), "bin", "flutter")))
	r.AddCheck(doctor.NewVersionCheck(s.Runner, s.Fs, "rustc", "--version").
		WithFallback(filepath.Join(s.cargoBin(), "rustc")))
	r.AddCheck(doctor.NewVersionCheck(s.Runner, s.Fs, "cargo", "--version").
		WithFallback(filepath.Join(s.cargoBin(), "cargo")))
	r.AddCheck(doctor.NewVersionCheck(s.Runner, s.Fs, "sdkmanager", "--version").
		WithFallback(filepath.Join(s.androidRoot(), "cmdline-tools", "latest", "bin", sdkmanager)))
	r.AddCheck(doctor.NewFlutterDoctorCheck(s.Runner))
	r.AddCheck(doctor.NewDuplicatePathCheck(s.Env, s.PathSep()))
	r.AddCheck(doctor.NewBindingCheck(s.Store, diagnosedBindings...))
	if s.Profile != "" {
		r.AddCheck(doctor.NewProfileCheck(s.Fs, s.Profile))
	}
	return r
}
