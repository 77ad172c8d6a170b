package catalog

import (
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/thoreinstein/provision/internal/errors"
)

var versionRe = regexp.MustCompile(`\d+(\.\d+){0,2}`)

// ErrNoVersion is returned when self-report output carries no version number.
var ErrNoVersion = errors.New("no version in output")

// ParseVersion extracts the first dotted version number from output,
// e.g. "rustc 1.77.2 (25ef9e3d8 2024-04-09)".
func ParseVersion(output string) (*semver.Version, error) {
	m := versionRe.FindString(output)
	if m == "" {
		return nil, errors.Wrapf(ErrNoVersion, "%q", output)
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", m)
	}
	return v, nil
}

// ParseJavaVersion is ParseVersion with legacy "1.8.0" numbering mapped to
// major 8.
func ParseJavaVersion(output string) (*semver.Version, error) {
	v, err := ParseVersion(output)
	if err != nil {
		return nil, err
	}
	if v.Major() == 1 && v.Minor() > 0 {
		return semver.New(v.Minor(), v.Patch(), 0, "", ""), nil
	}
	return v, nil
}

// Check reports whether v matches constraint. An empty constraint matches.
func Check(v *semver.Version, constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errors.Wrapf(err, "constraint %q", constraint)
	}
	return c.Check(v), nil
}
