package backup

import (
	"sync"

	"github.com/thoreinstein/provision/internal/errors"
)

// Guard snapshots each file at most once per run, immediately before its
// first modification. A failed snapshot is retried on the next call.
type Guard struct {
	mgr *Manager

	mu   sync.Mutex
	done map[string]*Manifest
}

// NewGuard returns a Guard backed by mgr.
func NewGuard(mgr *Manager) *Guard {
	return &Guard{mgr: mgr, done: make(map[string]*Manifest)}
}

// EnsureBackedUp snapshots path if it has not been snapshotted by this
// Guard yet, then prunes old snapshots. A path that does not exist has
// nothing to lose and is recorded as done.
func (g *Guard) EnsureBackedUp(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.done[path]; ok {
		return nil
	}

	manifest, err := g.mgr.Backup([]string{path})
	switch {
	case errors.Is(err, ErrNothingToBackUp):
		g.done[path] = nil
		return nil
	case err != nil:
		return errors.Wrapf(err, "creating backup for %s", path)
	}

	g.done[path] = manifest
	return errors.Wrap(g.mgr.Prune(), "pruning backups")
}

// Snapshots returns the manifests created by this Guard.
func (g *Guard) Snapshots() []*Manifest {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*Manifest
	for _, m := range g.done {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
