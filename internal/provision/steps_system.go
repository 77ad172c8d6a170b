package provision

import (
	"context"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/catalog"
	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/internal/pkgmgr"
	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

type systemPackagesStep struct {
	note
	missing []string
}

func (*systemPackagesStep) ID() string    { return StepSystemPackages }
func (*systemPackagesStep) Title() string { return "System packages" }

func (st *systemPackagesStep) Check(ctx context.Context, s *Session) (Status, error) {
	reqs := s.Catalog.ByKind(catalog.KindSystem)
	if s.Manager == nil {
		names := manualNames(reqs)
		s.Manual(names...)
		st.say("please install manually: %s", strings.Join(names, ", "))
		return StatusWarning, nil
	}

	pkgs, unavailable := s.Catalog.Packages(catalog.KindSystem, s.Manager.Name())
	missing, err := pkgmgr.Missing(ctx, s.Manager, pkgs)
	if err != nil {
		return "", errors.Wrap(err, "querying installed packages")
	}
	st.missing = missing

	if len(missing) == 0 {
		st.say("%d packages installed", len(pkgs))
		if len(unavailable) > 0 {
			st.say("%d packages installed (%s provides no package for %s)",
				len(pkgs), s.Manager.Name(), strings.Join(unavailable, ", "))
		}
		return StatusOK, nil
	}
	st.say("would install %s", strings.Join(missing, " "))
	return StatusPending, nil
}

func (st *systemPackagesStep) Apply(ctx context.Context, s *Session) StepResult {
	if err := s.Install(ctx, st.missing...); err != nil {
		s.Manual(st.missing...)
		return warn(err, "installing %s", strings.Join(st.missing, " "))
	}
	return converged("installed %s", strings.Join(st.missing, " "))
}

// jvmDir holds distribution JDKs on Linux (java-17-openjdk-amd64, jdk-17).
const jvmDir = "/usr/lib/jvm"

type jdkStep struct {
	note
	javac     string
	satisfied bool
	home      string
}

func (*jdkStep) ID() string    { return StepJDK }
func (*jdkStep) Title() string { return "JDK" }

func (st *jdkStep) Check(ctx context.Context, s *Session) (Status, error) {
	req, _ := s.Catalog.Get("jdk")
	st.javac, st.satisfied, st.home = "", false, ""

	home, found, err := st.locateJDK(ctx, s, req)
	if err != nil {
		return "", err
	}
	if !found {
		pinned, err := st.pinnedInstalled(ctx, s, req)
		if err != nil {
			return "", err
		}
		if pinned {
			st.say("%s is installed but no JDK %d was found for JAVA_HOME", req.Name, s.Config.JDK.Version)
			return StatusWarning, nil
		}
		st.say("would install %s", req.Name)
		return StatusPending, nil
	}

	st.satisfied = true
	st.home = home
	if !s.Bound(ctx, "JAVA_HOME", home) {
		st.say("would set JAVA_HOME=%s", home)
		return StatusPending, nil
	}

	st.say("JDK %d at %s", s.Config.JDK.Version, home)
	return StatusOK, nil
}

func (st *jdkStep) Apply(ctx context.Context, s *Session) StepResult {
	req, _ := s.Catalog.Get("jdk")
	installed := false

	if !st.satisfied {
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
		installed = true

		home, found, err := st.locateJDK(ctx, s, req)
		if err != nil {
			return withChange(warn(err, "resolving JAVA_HOME"), true)
		}
		if !found {
			return withChange(warn(nil, "installed %s but no JDK %d was found for JAVA_HOME", pkg, s.Config.JDK.Version), true)
		}
		st.home = home
	}

	bound, err := s.Bind(ctx, "JAVA_HOME", st.home)
	if err != nil {
		return withChange(warn(err, "persisting JAVA_HOME"), installed)
	}
	if installed {
		return converged("installed %s; JAVA_HOME=%s", req.Name, st.home)
	}
	return withChange(unchanged("JAVA_HOME=%s", st.home), bound)
}

// locateJDK returns the root of a JDK that satisfies the pinned major.
// The javac on PATH wins when it qualifies; an older one is passed over
// for the pinned install (java_home on darwin, /usr/lib/jvm on Linux).
func (st *jdkStep) locateJDK(ctx context.Context, s *Session, req catalog.Requirement) (string, bool, error) {
	if javac, found := s.Locate("javac"); found {
		v, err := javaVersion(ctx, s, javac, req.VersionArgs)
		if err == nil {
			match, err := catalog.Check(v, req.MinVersion)
			if err != nil {
				return "", false, err
			}
			if match {
				st.javac = javac
				home, err := st.resolveHome(ctx, s)
				if err != nil {
					return "", false, err
				}
				return home, true, nil
			}
			st.say("passing over javac %s at %s", v, javac)
		}
	}

	home, found := st.pinnedHome(ctx, s)
	return home, found, nil
}

// pinnedHome finds the pinned JDK without consulting PATH.
func (st *jdkStep) pinnedHome(ctx context.Context, s *Session) (string, bool) {
	major := strconv.Itoa(s.Config.JDK.Version)
	switch s.Host.OS {
	case platform.Darwin:
		res, err := s.Runner.Run(ctx, shell.Command("/usr/libexec/java_home", "-v", major))
		if err == nil && res.Output() != "" {
			return res.Output(), true
		}
	case platform.Linux:
		var candidates []string
		for _, pattern := range []string{"*-" + major + "-*", "*-" + major} {
			matches, err := afero.Glob(s.Fs, filepath.Join(jvmDir, pattern))
			if err == nil {
				candidates = append(candidates, matches...)
			}
		}
		slices.Sort(candidates)
		for _, dir := range candidates {
			if ok, _ := afero.Exists(s.Fs, filepath.Join(dir, "bin", "javac")); ok {
				return dir, true
			}
		}
	}
	return "", false
}

// pinnedInstalled asks the manager whether the pinned package is present.
func (st *jdkStep) pinnedInstalled(ctx context.Context, s *Session, req catalog.Requirement) (bool, error) {
	if s.Manager == nil {
		return false, nil
	}
	pkg, has := req.Package(s.Manager.Name())
	if !has {
		return false, nil
	}
	installed, err := s.Manager.IsInstalled(ctx, pkg)
	return installed, errors.Wrapf(err, "querying %s", pkg)
}

// resolveHome finds the root of st.javac: java_home on darwin, otherwise
// the parent of the symlink-resolved javac bin directory.
func (st *jdkStep) resolveHome(ctx context.Context, s *Session) (string, error) {
	if s.Host.OS == platform.Darwin {
		res, err := s.Runner.Run(ctx, shell.Command("/usr/libexec/java_home", "-v", strconv.Itoa(s.Config.JDK.Version)))
		if err == nil && res.Output() != "" {
			return res.Output(), nil
		}
	}
	resolved, err := s.EvalSymlinks(st.javac)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", st.javac)
	}
	return filepath.Dir(filepath.Dir(resolved)), nil
}

// javaVersion runs the compiler's self-report. Older JDKs print to stderr.
func javaVersion(ctx context.Context, s *Session, javac string, versionArgs []string) (*semver.Version, error) {
	args := []string{"-version"}
	if len(versionArgs) > 1 {
		args = versionArgs[1:]
	}
	res, err := s.Runner.Run(ctx, shell.Command(javac, args...))
	if err != nil {
		return nil, err
	}
	return catalog.ParseJavaVersion(output(res))
}
