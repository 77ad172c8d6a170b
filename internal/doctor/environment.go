package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/thoreinstein/provision/internal/envstore"
)

// DuplicatePathCheck detects directories listed more than once in PATH.
type DuplicatePathCheck struct {
	env envstore.Env
	sep rune
}

var _ Check = (*DuplicatePathCheck)(nil)

// NewDuplicatePathCheck creates a check over env's PATH split on sep.
func NewDuplicatePathCheck(env envstore.Env, sep rune) *DuplicatePathCheck {
	return &DuplicatePathCheck{env: env, sep: sep}
}

// Name returns the unique identifier for this check.
func (c *DuplicatePathCheck) Name() string {
	return "duplicate-path"
}

// Category returns the grouping for this check.
func (c *DuplicatePathCheck) Category() string {
	return "environment"
}

// Run inspects PATH.
func (c *DuplicatePathCheck) Run(context.Context) *CheckResult {
	entries := envstore.SplitPath(c.env.Getenv("PATH"), c.sep)
	dups := envstore.Duplicates(entries)
	if len(dups) == 0 {
		return &CheckResult{
			Status:  SeverityPass,
			Message: fmt.Sprintf("%d PATH entries, no duplicates", len(entries)),
		}
	}
	return &CheckResult{
		Status:  SeverityWarning,
		Message: "duplicate PATH entries: " + strings.Join(dups, ", "),
		Details: map[string]any{"duplicates": dups},
		FixHint: "remove the repeated entries from your shell profile",
	}
}

// BindingCheck verifies that environment bindings are persisted.
type BindingCheck struct {
	store envstore.Store
	names []string
}

var _ Check = (*BindingCheck)(nil)

// NewBindingCheck creates a check that each of names is bound in store.
func NewBindingCheck(store envstore.Store, names ...string) *BindingCheck {
	return &BindingCheck{store: store, names: names}
}

// Name returns the unique identifier for this check.
func (c *BindingCheck) Name() string {
	return "bindings"
}

// Category returns the grouping for this check.
func (c *BindingCheck) Category() string {
	return "environment"
}

// Run looks up each binding.
func (c *BindingCheck) Run(ctx context.Context) *CheckResult {
	bound := make(map[string]any, len(c.names))
	var missing []string
	for _, name := range c.names {
		v, ok, err := c.store.Lookup(ctx, name)
		if err != nil {
			return &CheckResult{
				Status:  SeverityError,
				Message: fmt.Sprintf("reading %s: %v", c.store.Location(), err),
			}
		}
		if !ok || v == "" {
			missing = append(missing, name)
			continue
		}
		bound[name] = v
	}

	if len(missing) > 0 {
		return &CheckResult{
			Status:  SeverityWarning,
			Message: "not set in " + c.store.Location() + ": " + strings.Join(missing, ", "),
			Details: bound,
			FixHint: "re-run provision run",
		}
	}
	return &CheckResult{
		Status:  SeverityPass,
		Message: fmt.Sprintf("%d bindings set in %s", len(c.names), c.store.Location()),
		Details: bound,
	}
}
