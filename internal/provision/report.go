package provision

import (
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/doctor"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/pkg/fileutil"
)

// Report is the outcome of a run or plan.
type Report struct {
	Host      string         `json:"host" yaml:"host"`
	Mode      string         `json:"mode" yaml:"mode"`
	StartedAt time.Time      `json:"started_at" yaml:"started_at"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
	Manager   string         `json:"package_manager" yaml:"package_manager"`
	Results   []StepResult   `json:"results" yaml:"results"`
	Counts    map[Status]int `json:"counts" yaml:"counts"`
	Fatal     string         `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	NextSteps []string       `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
	Manual    []string       `json:"manual_installs,omitempty" yaml:"manual_installs,omitempty"`
	Doctor    *doctor.Report `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func newReport(host *platform.Host, apply bool, now time.Time) *Report {
	mode := "plan"
	if apply {
		mode = "run"
	}
	r := &Report{
		Mode:      mode,
		StartedAt: now.UTC(),
		Counts:    make(map[Status]int),
	}
	if host != nil {
		r.Host = host.String()
	}
	return r
}

func (r *Report) add(res StepResult) {
	r.Results = append(r.Results, res)
	r.Counts[res.Status]++
}

// Get returns the result of step id.
func (r *Report) Get(id string) (StepResult, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return StepResult{}, false
}

// Changed returns how many steps changed the host.
func (r *Report) Changed() int {
	n := 0
	for _, res := range r.Results {
		if res.Changed {
			n++
		}
	}
	return n
}

// HasWarnings reports whether any step ended in a warning.
func (r *Report) HasWarnings() bool {
	return r.Counts[StatusWarning] > 0
}

func (r *Report) finish(s *Session, now time.Time) {
	r.Duration = now.Sub(r.StartedAt)
	r.Manager = s.ManagerName()
	r.Doctor = s.Diagnostics
	r.Manual = s.ManualInstalls()
	if r.Mode == "run" {
		r.NextSteps = nextSteps(r, s)
	}
}

func nextSteps(r *Report, s *Session) []string {
	var steps []string
	if r.Changed() > 0 {
		steps = append(steps, "restart your shell (or source "+s.Store.Location()+") to pick up environment changes")
	}
	if s.licensesFailed {
		steps = append(steps, "run `flutter doctor --android-licenses` to accept the Android SDK licenses")
	}
	if len(s.manual) > 0 {
		steps = append(steps, "install manually: "+strings.Join(s.manual, ", "))
	}
	if r.HasWarnings() || r.Fatal != "" {
		steps = append(steps, "re-run `provision run` after fixing the problems above")
	}
	return steps
}

// Write stores the report at path as JSON or YAML, chosen by extension.
func (r *Report) Write(fs afero.Fs, path string) error {
	return errors.Wrap(fileutil.AtomicWriteEncoded(fs, path, r), "writing report")
}
