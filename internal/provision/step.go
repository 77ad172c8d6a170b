package provision

import (
	"context"
	"fmt"
	"time"
)

// Status is the outcome of a step.
type Status string

const (
	// StatusOK means the requirement was already satisfied.
	StatusOK Status = "ok"
	// StatusChanged means the step converged the host this run.
	StatusChanged Status = "changed"
	// StatusSkipped means the step did not apply: no manager, declined, or filtered.
	StatusSkipped Status = "skipped"
	// StatusPending is returned by Check when Apply has work to do.
	StatusPending Status = "pending"
	// StatusWarning is a best-effort failure; the run continues.
	StatusWarning Status = "warning"
	// StatusAdvisory is a diagnostics finding.
	StatusAdvisory Status = "advisory"
	// StatusFatal aborts the run.
	StatusFatal Status = "fatal"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOK, StatusChanged, StatusSkipped, StatusPending, StatusWarning, StatusAdvisory, StatusFatal}

// Step is one entry of the provisioning checklist.
type Step interface {
	// ID is the stable identifier used by --only and --skip.
	ID() string

	// Title is the human-readable name.
	Title() string

	// Check inspects the host without changing it. It returns
	// StatusPending when Apply has work to do, or a final status.
	Check(ctx context.Context, s *Session) (Status, error)

	// Apply converges the host. It is called only after Check returned
	// StatusPending.
	Apply(ctx context.Context, s *Session) StepResult
}

// Summarizer is implemented by steps that explain a final Check status.
type Summarizer interface {
	Summary() string
}

// StepResult is the outcome of a single step.
type StepResult struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title" yaml:"title"`
	Status   Status        `json:"status" yaml:"status"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
	Changed  bool          `json:"changed" yaml:"changed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`

	// Err is the underlying error of a warning or fatal result.
	Err error `json:"-" yaml:"-"`
}

// note carries the message a step explains its Check status with.
type note struct {
	msg string
}

func (n *note) Summary() string { return n.msg }

func (n *note) say(format string, args ...any) {
	n.msg = fmt.Sprintf(format, args...)
}

func (n *note) reset() { n.msg = "" }

type resetter interface {
	reset()
}

func unchanged(format string, args ...any) StepResult {
	return StepResult{Status: StatusOK, Message: fmt.Sprintf(format, args...)}
}

func converged(format string, args ...any) StepResult {
	return StepResult{Status: StatusChanged, Changed: true, Message: fmt.Sprintf(format, args...)}
}

func skipped(format string, args ...any) StepResult {
	return StepResult{Status: StatusSkipped, Message: fmt.Sprintf(format, args...)}
}

func warn(err error, format string, args ...any) StepResult {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return StepResult{Status: StatusWarning, Message: msg, Err: err}
}

// withChange marks r as changed when anything changed earlier in Apply,
// upgrading ok to changed. Warnings keep their status.
func withChange(r StepResult, did bool) StepResult {
	if !did {
		return r
	}
	r.Changed = true
	if r.Status == StatusOK {
		r.Status = StatusChanged
	}
	return r
}
