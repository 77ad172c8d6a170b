// Package envstore persists environment bindings and PATH entries.
//
// Unix hosts persist to a shell profile as
//
//	export NAME="value"
//	export PATH="$PATH:/dir"
//
// lines; Windows hosts persist to the machine (or user) environment through
// PowerShell. Every mutation is guarded: a binding that already holds the
// requested value and a PATH entry already present verbatim are left alone,
// so repeated runs never add duplicate lines.
package envstore

import (
	"context"
	"os"
	"slices"
	"strings"
)

// Scope is the persistence scope of a binding.
type Scope string

const (
	// ScopeUser persists for the current user.
	ScopeUser Scope = "user"
	// ScopeMachine persists for every user of the machine.
	ScopeMachine Scope = "machine"
)

// Binding is a persisted NAME=value pair.
type Binding struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
	Scope Scope  `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// Store is a persistent environment.
type Store interface {
	// Lookup returns the persisted value of name.
	Lookup(ctx context.Context, name string) (string, bool, error)

	// EnsureBinding persists b, replacing a different previous value.
	// Reports whether the store changed.
	EnsureBinding(ctx context.Context, b Binding) (bool, error)

	// EnsurePathEntry appends dir to the persisted PATH unless it is already
	// present verbatim in the live or persisted PATH. Reports whether the
	// store changed.
	EnsurePathEntry(ctx context.Context, dir string) (bool, error)

	// PathEntries returns the persisted PATH entries in order.
	PathEntries(ctx context.Context) ([]string, error)

	// Location describes where values are persisted, for messages.
	Location() string
}

// Privileged is implemented by stores that can only write from an elevated
// process.
type Privileged interface {
	NeedsElevation() bool
}

// Env is the live process environment. Stores update it after persisting
// so that later steps see new bindings without a shell restart.
type Env interface {
	Getenv(key string) string
	Setenv(key, value string) error
}

// OSEnv is the real process environment.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string       { return os.Getenv(key) }
func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

// MapEnv is an in-memory Env for tests.
type MapEnv map[string]string

func (m MapEnv) Getenv(key string) string { return m[key] }

func (m MapEnv) Setenv(key, value string) error {
	m[key] = value
	return nil
}

// SplitPath splits a PATH value using sep, dropping empty elements.
func SplitPath(value string, sep rune) []string {
	var out []string
	for _, p := range strings.Split(value, string(sep)) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// appendLivePath adds dir to the live PATH when absent.
func appendLivePath(env Env, dir string, sep rune) error {
	cur := env.Getenv("PATH")
	if slices.Contains(SplitPath(cur, sep), dir) {
		return nil
	}
	if cur == "" {
		return env.Setenv("PATH", dir)
	}
	return env.Setenv("PATH", cur+string(sep)+dir)
}

// Duplicates returns PATH elements that occur more than once, in order of
// their second occurrence.
func Duplicates(entries []string) []string {
	seen := make(map[string]int, len(entries))
	var dups []string
	for _, e := range entries {
		seen[e]++
		if seen[e] == 2 {
			dups = append(dups, e)
		}
	}
	return dups
}
