package envstore

import (
	"bufio"
	"bytes"
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/pkg/fileutil"
)

var (
	exportRe     = regexp.MustCompile(`^\s*export\s+([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)
	pathAppendRe = regexp.MustCompile(`^\s*export\s+PATH="\$PATH:(.*)"\s*$`)
)

// ProfileStore persists bindings as export lines in a shell profile.
type ProfileStore struct {
	fs   afero.Fs
	path string
	env  Env

	// BeforeWrite runs before every modification of the profile.
	// The backup hook wired here snapshots once per run.
	BeforeWrite func(path string) error
}

// NewProfileStore returns a store writing to path on fs and updating env.
func NewProfileStore(fs afero.Fs, path string, env Env) *ProfileStore {
	return &ProfileStore{fs: fs, path: path, env: env}
}

// Location implements Store.
func (s *ProfileStore) Location() string {
	return s.path
}

// Lookup implements Store. The last export of name wins, as in the shell.
func (s *ProfileStore) Lookup(_ context.Context, name string) (string, bool, error) {
	lines, err := s.read()
	if err != nil {
		return "", false, err
	}
	val, found := "", false
	for _, l := range lines {
		if n, v, ok := parseExport(l); ok && n == name {
			val, found = v, true
		}
	}
	return val, found, nil
}

// EnsureBinding implements Store. An existing export of the same name is
// rewritten in place; otherwise a line is appended.
func (s *ProfileStore) EnsureBinding(_ context.Context, b Binding) (bool, error) {
	if b.Name == "PATH" {
		return false, errors.New("use EnsurePathEntry for PATH")
	}
	lines, err := s.read()
	if err != nil {
		return false, err
	}

	want := ExportLine(b.Name, b.Value)
	last := -1
	for i, l := range lines {
		if n, _, ok := parseExport(l); ok && n == b.Name {
			last = i
		}
	}

	changed := false
	switch {
	case last >= 0 && lines[last] == want:
	case last >= 0:
		lines[last] = want
		changed = true
	default:
		lines = append(lines, want)
		changed = true
	}

	if changed {
		if err := s.write(lines); err != nil {
			return false, err
		}
	}
	if err := s.env.Setenv(b.Name, b.Value); err != nil {
		return changed, errors.Wrapf(err, "setting %s", b.Name)
	}
	return changed, nil
}

// EnsurePathEntry implements Store.
func (s *ProfileStore) EnsurePathEntry(ctx context.Context, dir string) (bool, error) {
	persisted, err := s.PathEntries(ctx)
	if err != nil {
		return false, err
	}

	live := SplitPath(s.env.Getenv("PATH"), ':')
	if slices.Contains(persisted, dir) || slices.Contains(live, dir) {
		return false, nil
	}

	lines, err := s.read()
	if err != nil {
		return false, err
	}
	if err := s.write(append(lines, PathLine(dir))); err != nil {
		return false, err
	}
	return true, errors.Wrap(appendLivePath(s.env, dir, ':'), "updating PATH")
}

// PathEntries implements Store. Only lines written in the
// `export PATH="$PATH:<dir>"` form are recognised.
func (s *ProfileStore) PathEntries(context.Context) ([]string, error) {
	lines, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range lines {
		if m := pathAppendRe.FindStringSubmatch(l); m != nil {
			out = append(out, unquoter.Replace(m[1]))
		}
	}
	return out, nil
}

func (s *ProfileStore) read() ([]string, error) {
	data, err := fileutil.ReadFileWithLimit(s.fs, s.path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading profile %s", s.path)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, errors.Wrapf(sc.Err(), "reading profile %s", s.path)
}

func (s *ProfileStore) write(lines []string) error {
	if s.BeforeWrite != nil {
		if err := s.BeforeWrite(s.path); err != nil {
			return errors.Wrap(err, "backing up profile")
		}
	}

	perm := os.FileMode(0o644)
	if info, err := s.fs.Stat(s.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(s.path))
	}

	data := strings.Join(lines, "\n") + "\n"
	return errors.Wrapf(fileutil.AtomicWriteFileFS(s.fs, s.path, []byte(data), perm), "writing profile %s", s.path)
}

// ExportLine renders `export NAME="value"` with shell double-quote escaping.
func ExportLine(name, value string) string {
	return "export " + name + `="` + quote(value) + `"`
}

// PathLine renders `export PATH="$PATH:<dir>"`.
func PathLine(dir string) string {
	return `export PATH="$PATH:` + quote(dir) + `"`
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

var unquoter = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\$`, "$", "\\`", "`")

func quote(s string) string { return quoter.Replace(s) }

// parseExport returns the name and unquoted value of an export line.
// PATH appends are not bindings.
func parseExport(line string) (name, value string, ok bool) {
	m := exportRe.FindStringSubmatch(line)
	if m == nil || m[1] == "PATH" {
		return "", "", false
	}
	v := strings.TrimSpace(m[2])
	switch {
	case len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"':
		v = unquoter.Replace(v[1 : len(v)-1])
	case len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'':
		v = v[1 : len(v)-1]
	}
	return m[1], v, true
}
