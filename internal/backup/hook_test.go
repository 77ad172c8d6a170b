package backup

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_OncePerPath(t *testing.T) {
	m, fs := newTestManager(t, WithClock(stepClock()))
	g := NewGuard(m)

	require.NoError(t, g.EnsureBackedUp(profile))
	require.NoError(t, afero.WriteFile(fs, profile, []byte("changed\n"), 0o600))
	require.NoError(t, g.EnsureBackedUp(profile))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, g.Snapshots(), 1)

	// The snapshot holds the content from before the first write.
	_, err = m.Restore(list[0].ID)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, profile)
	require.NoError(t, err)
	assert.Equal(t, "export EDITOR=vim\n", string(data))
}

func TestGuard_MissingFile(t *testing.T) {
	m, _ := newTestManager(t)
	g := NewGuard(m)

	require.NoError(t, g.EnsureBackedUp("/home/dev/.zshrc"))
	assert.Empty(t, g.Snapshots())
}

func TestGuard_Prunes(t *testing.T) {
	m, fs := newTestManager(t, WithClock(stepClock()), WithRetentionCount(1))

	other := "/home/dev/.profile"
	require.NoError(t, afero.WriteFile(fs, other, []byte("x\n"), 0o644))

	g := NewGuard(m)
	require.NoError(t, g.EnsureBackedUp(profile))
	require.NoError(t, g.EnsureBackedUp(other))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other, list[0].Files[0].OriginalPath)
}
