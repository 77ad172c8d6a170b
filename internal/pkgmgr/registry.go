package pkgmgr

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/platform"
	"github.com/thoreinstein/provision/internal/shell"
)

// ErrAlreadyRegistered is returned when a manager name is registered twice.
var ErrAlreadyRegistered = errors.New("package manager already registered")

// Factory builds a Manager bound to a runner.
type Factory func(shell.Runner) Manager

// Entry describes a registered strategy.
type Entry struct {
	// Name is the manager identifier.
	Name string

	// Probe is the binary whose presence selects the manager.
	Probe string

	// OS is the host family the manager serves.
	OS string

	// New builds the manager.
	New Factory
}

// Registry holds strategies in priority order per OS.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns the built-in priority list:
// linux apt, dnf, pacman; darwin brew; windows winget.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		{Name: Apt, Probe: "apt-get", OS: platform.Linux, New: func(s shell.Runner) Manager { return NewApt(s) }},
		{Name: Dnf, Probe: "dnf", OS: platform.Linux, New: func(s shell.Runner) Manager { return NewDnf(s) }},
		{Name: Pacman, Probe: "pacman", OS: platform.Linux, New: func(s shell.Runner) Manager { return NewPacman(s) }},
		{Name: Brew, Probe: "brew", OS: platform.Darwin, New: func(s shell.Runner) Manager { return NewBrew(s) }},
		{Name: Winget, Probe: "winget", OS: platform.Windows, New: func(s shell.Runner) Manager { return NewWinget(s) }},
	} {
		// built-in names are unique
		_ = r.Register(e)
	}
	return r
}

// Register appends e at the lowest priority for its OS.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.Name == e.Name {
			return errors.Wrap(ErrAlreadyRegistered, e.Name)
		}
	}
	r.entries = append(r.entries, e)
	return nil
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// For returns the entries serving goos in priority order.
func (r *Registry) For(goos string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.OS == goos {
			out = append(out, e)
		}
	}
	return out
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Detect selects the manager for host.
//
// forced overrides detection: "" or "auto" probe in priority order,
// "none" disables managers, and any other value must be registered and
// have its probe binary present. A nil Manager with a nil error means no
// manager is available.
func (r *Registry) Detect(host *platform.Host, runner shell.Runner, forced string) (Manager, error) {
	switch forced {
	case None:
		return nil, nil
	case "", "auto":
		for _, e := range r.For(host.OS) {
			if shell.Has(runner, e.Probe) {
				return e.New(runner), nil
			}
		}
		return nil, nil
	}

	e, ok := r.Get(forced)
	if !ok {
		return nil, errors.Wrap(ErrUnknownManager, forced)
	}
	if !shell.Has(runner, e.Probe) {
		return nil, errors.Wrapf(shell.ErrNotFound, "forced package manager %s: %s", forced, e.Probe)
	}
	return e.New(runner), nil
}
