package download

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/errors"
)

// ErrUnsafePath is returned for archive entries that would escape the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ExtractZip extracts the archive at src into dest on fs, dropping the
// first strip path components of every entry. Executable bits recorded in
// the archive are kept.
func ExtractZip(fs afero.Fs, src, dest string, strip int) error {
	f, err := fs.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", src)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return errors.Wrapf(err, "reading zip %s", src)
	}

	for _, zf := range zr.File {
		rel, ok := stripComponents(zf.Name, strip)
		if !ok {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return errors.Wrap(ErrUnsafePath, zf.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "creating %s", target)
			}
			continue
		}
		if err := extractFile(fs, zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(fs afero.Fs, zf *zip.File, target string) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(target))
	}

	perm := zf.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	rc, err := zf.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", zf.Name)
	}
	defer rc.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return errors.Wrapf(err, "creating %s", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "extracting %s", zf.Name)
	}
	return errors.Wrapf(out.Close(), "closing %s", target)
}

// stripComponents drops n leading elements of a slash-separated name.
// Entries with n or fewer elements are skipped.
func stripComponents(name string, n int) (string, bool) {
	name = strings.TrimSuffix(path.Clean(name), "/")
	parts := strings.Split(name, "/")
	if len(parts) <= n {
		return "", false
	}
	return strings.Join(parts[n:], "/"), true
}
