package provision

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/shell"
)

type flutterStep struct {
	note
	dir    string
	exists bool
}

func (*flutterStep) ID() string    { return StepFlutterSDK }
func (*flutterStep) Title() string { return "Flutter SDK" }

func (st *flutterStep) Check(_ context.Context, s *Session) (Status, error) {
	st.dir = s.flutterDir()

	if p, err := s.Runner.LookPath("flutter"); err == nil && !within(p, st.dir) {
		st.say("using existing flutter at %s", p)
		return StatusOK, nil
	}

	isRepo, err := afero.DirExists(s.Fs, filepath.Join(st.dir, ".git"))
	if err != nil {
		return "", err
	}
	st.exists = isRepo
	if isRepo {
		st.say("would update %s to origin/%s", st.dir, s.Config.Flutter.Channel)
		return StatusPending, nil
	}

	if empty, err := dirEmptyOrMissing(s.Fs, st.dir); err != nil {
		return "", err
	} else if !empty {
		st.say("%s exists but is not a git checkout; move it aside to let provision manage Flutter", st.dir)
		return StatusWarning, nil
	}

	st.say("would clone %s (%s) into %s", s.Config.Flutter.Repo, s.Config.Flutter.Channel, st.dir)
	return StatusPending, nil
}

func (st *flutterStep) Apply(ctx context.Context, s *Session) StepResult {
	channel := s.Config.Flutter.Channel
	moved := false

	if st.exists {
		m, err := s.Git.Track(ctx, st.dir, channel)
		if err != nil {
			return warn(err, "updating %s", st.dir)
		}
		moved = m
	} else {
		if err := s.Fs.MkdirAll(filepath.Dir(st.dir), 0o755); err != nil {
			return warn(err, "creating %s", filepath.Dir(st.dir))
		}
		if err := s.Git.Clone(ctx, s.Config.Flutter.Repo, st.dir, channel); err != nil {
			return warn(err, "cloning Flutter")
		}
		moved = true
	}

	added, err := s.AddPath(ctx, filepath.Join(st.dir, "bin"))
	if err != nil {
		return withChange(warn(err, "adding Flutter to PATH"), moved)
	}

	switch {
	case !st.exists:
		return converged("cloned %s into %s", channel, st.dir)
	case moved:
		return converged("updated %s to origin/%s", st.dir, channel)
	}
	return withChange(unchanged("%s is up to date with origin/%s", st.dir, channel), added)
}

// within reports whether path lies inside dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func dirEmptyOrMissing(fs afero.Fs, dir string) (bool, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return afero.IsEmpty(fs, dir)
}

type sampleAppStep struct {
	note
	dir string
}

func (*sampleAppStep) ID() string    { return StepSampleApp }
func (*sampleAppStep) Title() string { return "Sample app" }

func (st *sampleAppStep) Check(_ context.Context, s *Session) (Status, error) {
	st.dir = s.Config.SampleApp.Dir
	if st.dir == "" {
		st.say("no sample app directory configured")
		return StatusSkipped, nil
	}
	exists, err := afero.Exists(s.Fs, st.dir)
	if err != nil {
		return "", err
	}
	if exists {
		st.say("%s already exists", st.dir)
		return StatusOK, nil
	}
	st.say("would offer to create %s", st.dir)
	return StatusPending, nil
}

func (st *sampleAppStep) Apply(ctx context.Context, s *Session) StepResult {
	yes, err := s.Prompt.Confirm("Create a sample Flutter app in "+st.dir+"?", false)
	if err != nil {
		return warn(err, "reading answer")
	}
	if !yes {
		return skipped("declined")
	}

	flutter, found := s.Locate("flutter", filepath.Join(s.flutterDir(), "bin"))
	if !found {
		return warn(nil, "flutter is not available; re-run after the Flutter SDK step succeeds")
	}

	cmd := shell.Command(flutter, "create", st.dir)
	cmd.Stream = true
	if _, err := s.Runner.Run(ctx, cmd); err != nil {
		return warn(err, "flutter create %s", st.dir)
	}
	return converged("created %s", st.dir)
}
