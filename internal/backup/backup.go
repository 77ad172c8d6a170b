package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/paths"
	"github.com/thoreinstein/provision/pkg/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Manager handles snapshot creation, restoration, and pruning.
type Manager struct {
	fs             afero.Fs
	rootDir        string
	retentionCount int
	now            func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetentionCount sets the number of snapshots to retain.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// WithFs sets the filesystem holding both the originals and the snapshots.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithClock sets the time source used for snapshot identifiers.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new backup Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		fs:             afero.NewOsFs(),
		rootDir:        paths.BackupDir(),
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the root snapshot directory.
func (m *Manager) Dir() string {
	return m.rootDir
}

// Backup snapshots the given files. Paths that do not exist are skipped;
// ErrNothingToBackUp is returned when none exist.
func (m *Manager) Backup(files []string) (*Manifest, error) {
	if len(files) == 0 {
		return nil, errors.New("at least one path is required")
	}

	id := m.newID()
	dir := m.snapshotPath(id)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating backup directory")
	}

	var saved []File
	for _, p := range files {
		info, err := m.fs.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			continue
		}

		bf, err := m.backupFile(p, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "backing up file %s", p)
		}
		saved = append(saved, *bf)
	}

	if len(saved) == 0 {
		_ = m.fs.RemoveAll(dir)
		return nil, ErrNothingToBackUp
	}

	manifest := &Manifest{
		Version:     ManifestVersion,
		CreatedAt:   m.now().UTC(),
		Files:       saved,
		ToolVersion: Version,
		ID:          id,
	}

	if err := fileutil.AtomicWriteJSON(m.fs, filepath.Join(dir, "manifest.json"), manifest); err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}

	return manifest, nil
}

// newID returns a timestamp identifier, suffixed when a snapshot with the
// same second already exists.
func (m *Manager) newID() string {
	base := m.now().Format(idLayout)
	id := base
	for i := 1; ; i++ {
		if ok, _ := afero.DirExists(m.fs, m.snapshotPath(id)); !ok {
			return id
		}
		id = base + "-" + strconv.Itoa(i)
	}
}

func (m *Manager) backupFile(src, dir string) (*File, error) {
	rel := generateRelPath(src)
	dst := filepath.Join(dir, rel)

	if err := m.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating parent directory")
	}

	hash, mode, err := m.copyFile(src, dst)
	if err != nil {
		return nil, err
	}

	return &File{
		OriginalPath: src,
		RelPath:      rel,
		SHA256Hash:   hash,
		Mode:         mode,
	}, nil
}

// Restore copies every file of snapshot id back to its original location
// after verifying its hash.
func (m *Manager) Restore(id string) (*Manifest, error) {
	manifest, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	dir := m.snapshotPath(id)
	for _, bf := range manifest.Files {
		src := filepath.Join(dir, bf.RelPath)

		hash, err := m.hashFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", bf.RelPath)
		}
		if hash != bf.SHA256Hash {
			return nil, errors.Wrapf(ErrBackupCorrupted, "file %s hash mismatch", bf.RelPath)
		}

		if err := m.fs.MkdirAll(filepath.Dir(bf.OriginalPath), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory for %s", bf.OriginalPath)
		}
		if _, _, err := m.copyFile(src, bf.OriginalPath); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", bf.OriginalPath)
		}
		if err := m.fs.Chmod(bf.OriginalPath, bf.Mode); err != nil {
			return nil, errors.Wrapf(err, "setting permissions for %s", bf.OriginalPath)
		}
	}

	return manifest, nil
}

// List returns all snapshots, newest first.
func (m *Manager) List() ([]Manifest, error) {
	entries, err := afero.ReadDir(m.fs, m.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(entry.Name())
		if err != nil {
			// Skip invalid backup directories
			continue
		}
		manifests = append(manifests, *manifest)
	}

	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})

	return manifests, nil
}

// Prune removes snapshots beyond the retention count, oldest first.
func (m *Manager) Prune() error {
	manifests, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil
		}
		return err
	}

	for i := m.retentionCount; i < len(manifests); i++ {
		if err := m.fs.RemoveAll(m.snapshotPath(manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", manifests[i].ID)
		}
	}
	return nil
}

// Get returns the manifest for snapshot id.
func (m *Manager) Get(id string) (*Manifest, error) {
	if id == "" {
		return nil, errors.New("backup ID is required")
	}
	if !filepath.IsLocal(id) {
		return nil, errors.Newf("invalid backup ID %q", id)
	}

	data, err := afero.ReadFile(m.fs, filepath.Join(m.snapshotPath(id), "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}

	manifest.ID = id
	return &manifest, nil
}

func (m *Manager) snapshotPath(id string) string {
	return filepath.Join(m.rootDir, id)
}

func (m *Manager) hashFile(path string) (string, error) {
	f, err := m.fs.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "reading file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies src to dst, returning the SHA256 hash and source mode.
func (m *Manager) copyFile(src, dst string) (hash string, mode fs.FileMode, err error) {
	srcFile, err := m.fs.Open(src)
	if err != nil {
		return "", 0, errors.Wrap(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "stat source file")
	}
	mode = srcInfo.Mode().Perm()

	dstFile, err := m.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, errors.Wrap(err, "creating destination file")
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dstFile, h), srcFile); err != nil {
		dstFile.Close()
		return "", 0, errors.Wrap(err, "copying file")
	}
	if err := dstFile.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing destination file")
	}
	if err := m.fs.Chmod(dst, mode); err != nil {
		return "", 0, errors.Wrap(err, "setting permissions")
	}

	return hex.EncodeToString(h.Sum(nil)), mode, nil
}

// generateRelPath maps an absolute path to a path inside the snapshot
// directory by dropping the root (or Windows volume).
func generateRelPath(absPath string) string {
	clean := filepath.Clean(absPath)
	clean = clean[len(filepath.VolumeName(clean)):]
	for len(clean) > 0 && (clean[0] == '/' || clean[0] == '\\') {
		clean = clean[1:]
	}
	return clean
}

// compareIDs orders "20261014T101500" < "20261014T101500-1" < "20261014T101500-2".
func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
