package platform

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// OS families the provisioner knows how to drive.
const (
	Linux   = "linux"
	Darwin  = "darwin"
	Windows = "windows"
)

// osReleasePaths are read in order; the first readable file wins.
var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Host describes the machine being provisioned.
type Host struct {
	// OS is the GOOS value: linux, darwin or windows.
	OS string `json:"os" yaml:"os"`

	// Arch is the GOARCH value.
	Arch string `json:"arch" yaml:"arch"`

	// Distro is the os-release ID (ubuntu, fedora, arch). Empty off Linux.
	Distro string `json:"distro,omitempty" yaml:"distro,omitempty"`

	// DistroLike is the os-release ID_LIKE list.
	DistroLike []string `json:"distro_like,omitempty" yaml:"distro_like,omitempty"`

	// DistroVersion is the os-release VERSION_ID.
	DistroVersion string `json:"distro_version,omitempty" yaml:"distro_version,omitempty"`

	// Shell is the login shell ($SHELL). Empty on Windows.
	Shell string `json:"shell,omitempty" yaml:"shell,omitempty"`

	// Home is the user's home directory.
	Home string `json:"home" yaml:"home"`

	// Root reports whether the process runs with euid 0.
	// Always false on Windows; administrator rights are resolved by the
	// elevate package.
	Root bool `json:"root" yaml:"root"`
}

// String returns "linux/amd64 (ubuntu 22.04)" style text.
func (h *Host) String() string {
	s := h.OS + "/" + h.Arch
	if h.Distro != "" {
		s += " (" + strings.TrimSpace(h.Distro+" "+h.DistroVersion) + ")"
	}
	return s
}

// IsUnix reports whether the host uses a shell profile for persistent environment.
func (h *Host) IsUnix() bool {
	return h.OS != Windows
}

// Supported reports whether the host OS is a family the provisioner handles.
func (h *Host) Supported() bool {
	switch h.OS {
	case Linux, Darwin, Windows:
		return true
	}
	return false
}

// Detector gathers host facts. The zero value is not usable; use NewDetector.
type Detector struct {
	fs      afero.Fs
	goos    string
	goarch  string
	getenv  func(string) string
	geteuid func() int
	home    func() (string, error)
}

// Option configures a Detector.
type Option func(*Detector)

// WithFs reads os-release from fs instead of the real filesystem.
func WithFs(fs afero.Fs) Option {
	return func(d *Detector) { d.fs = fs }
}

// WithGOOS overrides the reported OS and architecture.
func WithGOOS(goos, goarch string) Option {
	return func(d *Detector) {
		d.goos = goos
		d.goarch = goarch
	}
}

// WithEnv overrides environment lookup.
func WithEnv(getenv func(string) string) Option {
	return func(d *Detector) { d.getenv = getenv }
}

// WithEUID overrides the effective user id.
func WithEUID(euid int) Option {
	return func(d *Detector) { d.geteuid = func() int { return euid } }
}

// WithHome overrides home directory resolution.
func WithHome(home string) Option {
	return func(d *Detector) { d.home = func() (string, error) { return home, nil } }
}

// NewDetector returns a Detector bound to the running process.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		fs:      afero.NewOsFs(),
		goos:    runtime.GOOS,
		goarch:  runtime.GOARCH,
		getenv:  os.Getenv,
		geteuid: os.Geteuid,
		home:    os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the host description.
// A missing os-release file is not an error; Distro is left empty.
func (d *Detector) Detect() (*Host, error) {
	home, err := d.home()
	if err != nil || home == "" {
		return nil, errors.Wrap(errors.New("home directory not found"), "detecting host")
	}

	h := &Host{
		OS:   d.goos,
		Arch: d.goarch,
		Home: home,
	}

	if h.OS != Windows {
		h.Shell = d.getenv("SHELL")
		h.Root = d.geteuid() == 0
	}

	if h.OS == Linux {
		rel, err := d.readOSRelease()
		if err != nil {
			return nil, err
		}
		h.Distro = rel["ID"]
		h.DistroVersion = rel["VERSION_ID"]
		if like := rel["ID_LIKE"]; like != "" {
			h.DistroLike = strings.Fields(like)
		}
	}

	return h, nil
}

// Detect returns the description of the running host.
func Detect() (*Host, error) {
	return NewDetector().Detect()
}

func (d *Detector) readOSRelease() (map[string]string, error) {
	for _, p := range osReleasePaths {
		f, err := d.fs.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "opening %s", p)
		}
		defer f.Close()
		return ParseOSRelease(f)
	}
	return map[string]string{}, nil
}

// ParseOSRelease parses KEY=value lines as found in /etc/os-release.
// Values may be single or double quoted. Comments and blank lines are skipped.
func ParseOSRelease(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		out[strings.TrimSpace(key)] = val
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "parsing os-release")
	}
	return out, nil
}
