package provision

import (
	"context"
	"strings"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/logging"
	"github.com/thoreinstein/provision/internal/shell"
)

type vscodeStep struct{ note }

func (*vscodeStep) ID() string    { return StepVSCode }
func (*vscodeStep) Title() string { return "VS Code" }

func (st *vscodeStep) Check(_ context.Context, s *Session) (Status, error) {
	if p, found := s.Locate("code"); found {
		st.say("found at %s", p)
		return StatusOK, nil
	}
	st.say("would install Visual Studio Code")
	return StatusPending, nil
}

func (*vscodeStep) Apply(ctx context.Context, s *Session) StepResult {
	req, _ := s.Catalog.Get("vscode")
	if s.Manager == nil {
		s.Manual(req.Name)
		return warn(nil, "please install %s manually", req.Name)
	}
	pkg, has := req.Package(s.Manager.Name())
	if !has {
		s.Manual(req.Name)
		return warn(nil, "%s provides no package for %s; please install it manually", s.Manager.Name(), req.Name)
	}
	if err := s.Install(ctx, pkg); err != nil {
		s.Manual(req.Name)
		return warn(err, "installing %s", pkg)
	}
	return converged("installed %s", pkg)
}

type extensionsStep struct {
	note
	code    string
	missing []string
}

func (*extensionsStep) ID() string    { return StepVSCodeExtensions }
func (*extensionsStep) Title() string { return "VS Code extensions" }

func (st *extensionsStep) Check(ctx context.Context, s *Session) (Status, error) {
	code, found := s.Locate("code")
	if !found {
		st.say("VS Code is not available")
		return StatusSkipped, nil
	}
	st.code = code

	res, err := s.Runner.Run(ctx, shell.Command(code, "--list-extensions"))
	if err != nil {
		return "", err
	}
	installed := make(map[string]bool)
	for _, line := range strings.Split(res.Output(), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			installed[strings.ToLower(id)] = true
		}
	}

	wanted, _ := s.Catalog.Packages(catalog.KindExtension, catalog.InstallerCode)
	st.missing = nil
	for _, ext := range wanted {
		if !installed[strings.ToLower(ext)] {
			st.missing = append(st.missing, ext)
		}
	}

	if len(st.missing) == 0 {
		st.say("%d extensions installed", len(wanted))
		return StatusOK, nil
	}
	st.say("would install %s", strings.Join(st.missing, ", "))
	return StatusPending, nil
}

func (st *extensionsStep) Apply(ctx context.Context, s *Session) StepResult {
	logger := logging.FromContext(ctx)

	var installed, failed []string
	for _, ext := range st.missing {
		if _, err := s.Runner.Run(ctx, shell.Command(st.code, "--install-extension", ext)); err != nil {
			logger.Warn("installing extension failed", "extension", ext, "error", err)
			failed = append(failed, ext)
			continue
		}
		installed = append(installed, ext)
	}

	if len(failed) > 0 {
		return withChange(warn(nil, "failed to install %s", strings.Join(failed, ", ")), len(installed) > 0)
	}
	return converged("installed %s", strings.Join(installed, ", "))
}
