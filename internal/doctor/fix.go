package doctor

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/errors"
)

// Fixer is implemented by checks that can repair what they found.
// CanFix and Fix are only meaningful after Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult describes one attempted repair.
type FixResult struct {
	Path        string
	Fixed       bool
	Description string
	Error       error
}

// modeRepair restores profile permissions by chmod. It is embedded in
// ProfileCheck, which records the issues on each Run.
type modeRepair struct {
	fs     afero.Fs
	issues []pathIssue
}

// CanFix reports whether the last Run found a mode problem.
func (m *modeRepair) CanFix() bool {
	return m.CountFixable() > 0
}

// CountFixable returns the number of issues a chmod would resolve.
func (m *modeRepair) CountFixable() int {
	n := 0
	for _, issue := range m.issues {
		if issue.Want != 0 {
			n++
		}
	}
	return n
}

// Fix applies every pending chmod. Issues are cleared once attempted.
func (m *modeRepair) Fix() []FixResult {
	var results []FixResult
	for _, issue := range m.issues {
		if issue.Want == 0 {
			continue
		}
		res := FixResult{Path: issue.Path}
		if err := m.fs.Chmod(issue.Path, issue.Want); err != nil {
			res.Error = errors.Wrapf(err, "chmod %s", issue.Path)
			res.Description = res.Error.Error()
		} else {
			res.Fixed = true
			res.Description = fmt.Sprintf("mode %s -> %s", issue.Permissions, formatPermissions(issue.Want))
		}
		results = append(results, res)
	}
	m.issues = nil
	return results
}

// repairedMode clears group and other write bits and guarantees the
// owner can read and write.
func repairedMode(mode os.FileMode) os.FileMode {
	return (mode.Perm() &^ 0o022) | 0o600
}
