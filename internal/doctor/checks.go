package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// ProfileCheck validates the shell profile that holds persisted bindings:
// it must be a readable regular file that is not world-writable.
type ProfileCheck struct {
	modeRepair

	fs   afero.Fs
	path string
}

var (
	_ Check = (*ProfileCheck)(nil)
	_ Fixer = (*ProfileCheck)(nil)
)

// NewProfileCheck creates a check for the profile at path.
func NewProfileCheck(fs afero.Fs, path string) *ProfileCheck {
	c := &ProfileCheck{fs: fs, path: path}
	c.modeRepair.fs = fs
	return c
}

// Name returns the unique identifier for this check.
func (c *ProfileCheck) Name() string {
	return "profile-permissions"
}

// Category returns the grouping for this check.
func (c *ProfileCheck) Category() string {
	return "filesystem"
}

type pathIssue struct {
	Path        string
	Problem     string
	Severity    Severity
	Permissions string
	// Want is the mode that resolves the issue; zero when chmod cannot help.
	Want    os.FileMode
	FixHint string
}

// Run executes the profile diagnostic check.
func (c *ProfileCheck) Run(context.Context) *CheckResult {
	issues := c.checkFile(c.path)
	c.issues = issues
	return c.buildResult(issues)
}

func (c *ProfileCheck) checkFile(path string) []pathIssue {
	info, err := c.fs.Stat(path)
	if os.IsNotExist(err) {
		// Nothing persisted yet; the first run creates it.
		return nil
	}
	if err != nil {
		return []pathIssue{{
			Path:     path,
			Problem:  fmt.Sprintf("cannot stat file: %v", err),
			Severity: SeverityError,
		}}
	}

	if info.IsDir() {
		return []pathIssue{{
			Path:     path,
			Problem:  "expected file but found directory",
			Severity: SeverityError,
		}}
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return []pathIssue{{
			Path:        path,
			Problem:     "file is not readable",
			Severity:    SeverityError,
			Permissions: formatPermissions(info.Mode()),
			Want:        repairedMode(info.Mode()),
			FixHint:     "provision doctor --fix",
		}}
	}
	f.Close()

	var issues []pathIssue
	if info.Mode().Perm()&0o002 != 0 {
		issues = append(issues, pathIssue{
			Path:        path,
			Problem:     "file is world-writable (security risk)",
			Severity:    SeverityWarning,
			Permissions: formatPermissions(info.Mode()),
			Want:        repairedMode(info.Mode()),
			FixHint:     "provision doctor --fix",
		})
	}
	return issues
}

func (c *ProfileCheck) buildResult(issues []pathIssue) *CheckResult {
	if len(issues) == 0 {
		return &CheckResult{
			Status:  SeverityPass,
			Message: c.path + " has valid permissions",
		}
	}

	highest := SeverityPass
	fixable := false
	issueDetails := make([]map[string]any, 0, len(issues))
	for _, issue := range issues {
		highest = max(highest, issue.Severity)
		fixable = fixable || issue.Want != 0

		issueMap := map[string]any{
			"path":     issue.Path,
			"problem":  issue.Problem,
			"severity": issue.Severity.String(),
		}
		if issue.Permissions != "" {
			issueMap["permissions"] = issue.Permissions
		}
		issueDetails = append(issueDetails, issueMap)
	}

	return &CheckResult{
		Status:  highest,
		Message: issues[0].Problem,
		Details: map[string]any{
			"issue_count": len(issues),
			"issues":      issueDetails,
		},
		Fixable: fixable,
		FixHint: issues[0].FixHint,
	}
}

// formatPermissions returns the permission bits in octal, e.g. "0644".
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}
