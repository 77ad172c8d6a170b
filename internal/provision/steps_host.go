package provision

import (
	"context"
	"strings"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/elevate"
	"github.com/thoreinstein/provision/internal/envstore"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/pkgmgr"
)

type hostStep struct{ note }

func (*hostStep) ID() string    { return StepHost }
func (*hostStep) Title() string { return "Host" }

func (st *hostStep) Check(_ context.Context, s *Session) (Status, error) {
	if !s.Host.Supported() {
		return "", errors.Newf("unsupported operating system %q", s.Host.OS)
	}
	st.say("%s", s.Host)
	return StatusOK, nil
}

func (*hostStep) Apply(context.Context, *Session) StepResult {
	return unchanged("")
}

type managerStep struct{ note }

func (*managerStep) ID() string    { return StepPackageManager }
func (*managerStep) Title() string { return "Package manager" }

func (st *managerStep) Check(_ context.Context, s *Session) (Status, error) {
	if !s.managerResolved {
		s.managerResolved = true
		m, err := s.Registry.Detect(s.Host, s.Runner, s.forcedManager)
		if err != nil {
			return "", err
		}
		s.Manager = m
	}

	switch {
	case s.Manager != nil:
		st.say("%s", s.Manager.Name())
		return StatusOK, nil
	case s.forcedManager == pkgmgr.None:
		st.say("disabled; install tools manually")
		return StatusSkipped, nil
	}
	st.say("no supported package manager found (tried %s); install tools manually",
		strings.Join(managerNames(s), ", "))
	return StatusWarning, nil
}

func (*managerStep) Apply(context.Context, *Session) StepResult {
	return unchanged("")
}

func managerNames(s *Session) []string {
	var names []string
	for _, e := range s.Registry.For(s.Host.OS) {
		names = append(names, e.Name)
	}
	return names
}

type elevationStep struct{ note }

func (*elevationStep) ID() string    { return StepElevation }
func (*elevationStep) Title() string { return "Privilege elevation" }

func (st *elevationStep) Check(ctx context.Context, s *Session) (Status, error) {
	managerNeeds := s.Manager != nil && s.Manager.NeedsElevation()
	storeNeeds := false
	if p, ok := s.Store.(envstore.Privileged); ok {
		storeNeeds = p.NeedsElevation()
	}
	switch {
	case managerNeeds || storeNeeds:
	case s.Manager == nil:
		st.say("no package manager selected")
		return StatusSkipped, nil
	default:
		st.say("%s installs without elevation", s.Manager.Name())
		return StatusSkipped, nil
	}

	if s.Elevation == nil {
		e, err := elevate.Resolve(ctx, s.Host, s.Runner)
		if err != nil {
			return "", err
		}
		s.Elevation = e
		if managerNeeds {
			s.Manager.SetPrefix(e.Prefix)
		}
	}

	switch s.Elevation.Method {
	case elevate.MethodRoot:
		st.say("running as root")
	case elevate.MethodAdmin:
		st.say("running as administrator")
	default:
		st.say("using %s", s.Elevation.Method)
	}
	return StatusOK, nil
}

func (*elevationStep) Apply(context.Context, *Session) StepResult {
	return unchanged("")
}

// manualNames returns the display names of reqs.
func manualNames(reqs []catalog.Requirement) []string {
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}
