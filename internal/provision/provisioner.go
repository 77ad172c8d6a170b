package provision

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/logging"
)

// Step identifiers in execution order.
const (
	StepHost             = "host"
	StepPackageManager   = "package-manager"
	StepElevation        = "elevation"
	StepSystemPackages   = "system-packages"
	StepJDK              = "jdk"
	StepAndroidSDK       = "android-sdk"
	StepFlutterSDK       = "flutter-sdk"
	StepVSCode           = "vscode"
	StepVSCodeExtensions = "vscode-extensions"
	StepRustToolchain    = "rust-toolchain"
	StepCargoTools       = "cargo-tools"
	StepCommitHelper     = "commit-helper"
	StepSampleApp        = "sample-app"
	StepDiagnostics      = "diagnostics"
)

// ErrUnknownStep is returned for --only/--skip ids that name no step.
var ErrUnknownStep = errors.New("unknown step")

// prerequisites run regardless of filtering; later steps read their state.
var prerequisites = []string{StepHost, StepPackageManager, StepElevation}

// Options control a run.
type Options struct {
	// Only restricts the run to these step ids.
	Only []string

	// Skip removes these step ids from the run.
	Skip []string

	// PackageManager forces a manager ("none" disables them). Empty reads
	// the configuration.
	PackageManager string
}

// Provisioner runs the step sequence.
type Provisioner struct {
	session *Session
	steps   []Step
	only    []string
	skip    []string
	now     func() time.Time
}

// Steps returns a fresh instance of every step in execution order.
func Steps() []Step {
	return []Step{
		&hostStep{},
		&managerStep{},
		&elevationStep{},
		&systemPackagesStep{},
		&jdkStep{},
		&androidStep{},
		&flutterStep{},
		&vscodeStep{},
		&extensionsStep{},
		&rustStep{},
		&cargoToolsStep{},
		&commitHelperStep{},
		&sampleAppStep{},
		&diagnosticsStep{},
	}
}

// StepIDs returns the identifiers of Steps in order.
func StepIDs() []string {
	steps := Steps()
	ids := make([]string, len(steps))
	for i, st := range steps {
		ids[i] = st.ID()
	}
	return ids
}

// New returns a Provisioner for deps. Unknown ids in opts.Only or
// opts.Skip return ErrUnknownStep.
func New(deps Deps, opts Options) (*Provisioner, error) {
	ids := StepIDs()
	for _, id := range append(slices.Clone(opts.Only), opts.Skip...) {
		if !slices.Contains(ids, id) {
			return nil, errors.Wrapf(ErrUnknownStep, "%q (known: %s)", id, strings.Join(ids, ", "))
		}
	}

	return &Provisioner{
		session: NewSession(deps, opts.PackageManager),
		steps:   Steps(),
		only:    opts.Only,
		skip:    opts.Skip,
		now:     time.Now,
	}, nil
}

// Session returns the run state.
func (p *Provisioner) Session() *Session {
	return p.session
}

// Run checks and applies every selected step. The returned error is
// non-nil only for a fatal step; the report is returned either way.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	return p.execute(ctx, true)
}

// Plan runs Check for every selected step without applying anything.
// Steps that would change report StatusPending.
func (p *Provisioner) Plan(ctx context.Context) (*Report, error) {
	return p.execute(ctx, false)
}

func (p *Provisioner) execute(ctx context.Context, apply bool) (*Report, error) {
	report := newReport(p.session.Host, apply, p.now())

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			report.finish(p.session, p.now())
			return report, errors.Wrap(err, "provisioning interrupted")
		}

		start := p.now()
		res := p.runStep(ctx, step, apply)
		res.Duration = p.now().Sub(start)
		report.add(res)
		logResult(ctx, res)

		if res.Status == StatusFatal {
			report.Fatal = res.Message
			report.finish(p.session, p.now())
			return report, res.Err
		}
	}

	report.finish(p.session, p.now())
	return report, nil
}

func (p *Provisioner) runStep(ctx context.Context, step Step, apply bool) StepResult {
	res := p.evaluate(ctx, step, apply)
	res.ID = step.ID()
	res.Title = step.Title()
	if res.Err != nil {
		res.Error = res.Err.Error()
		if fatal(res.Err) {
			res.Status = StatusFatal
		}
	}
	return res
}

func (p *Provisioner) evaluate(ctx context.Context, step Step, apply bool) StepResult {
	if !p.selected(step.ID()) {
		return skipped("filtered")
	}
	if r, ok := step.(resetter); ok {
		r.reset()
	}

	st, err := step.Check(ctx, p.session)
	if err != nil {
		return warn(err, "check failed")
	}
	if st != StatusPending {
		return StepResult{Status: st, Message: summary(step, st)}
	}
	if !apply {
		msg := summary(step, st)
		if msg == "" {
			msg = "would change"
		}
		return StepResult{Status: StatusPending, Message: msg}
	}
	return step.Apply(ctx, p.session)
}

func (p *Provisioner) selected(id string) bool {
	if slices.Contains(prerequisites, id) {
		return true
	}
	if len(p.only) > 0 && !slices.Contains(p.only, id) {
		return false
	}
	return !slices.Contains(p.skip, id)
}

func summary(step Step, st Status) string {
	if s, ok := step.(Summarizer); ok && s.Summary() != "" {
		return s.Summary()
	}
	switch st {
	case StatusOK:
		return "already satisfied"
	case StatusSkipped:
		return "not applicable"
	}
	return ""
}

// logResult prints one severity-tagged line per step.
func logResult(ctx context.Context, res StepResult) {
	logger := logging.FromContext(ctx)

	var level slog.Level
	switch res.Status {
	case StatusOK, StatusChanged:
		level = logging.LevelOK
	case StatusWarning, StatusAdvisory:
		level = slog.LevelWarn
	case StatusFatal:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger.Log(ctx, level, res.Title+": "+res.Message,
		"step", res.ID,
		"status", string(res.Status),
		"duration", res.Duration.Round(time.Millisecond),
	)
}
