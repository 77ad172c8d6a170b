// Package fileutil provides file system utilities including atomic write operations.
//
// Every helper takes an afero.Fs so the same code writes real profile files
// and in-memory fixtures.
package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/provision/internal/errors"
)

// ErrUnsupportedFormat is returned by AtomicWriteEncoded for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// AtomicWriteFile writes data to a file on the OS filesystem atomically.
// See AtomicWriteFileFS.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFileFS(afero.NewOsFs(), path, data, perm)
}

// AtomicWriteFileFS writes data to path on fs using a temp file + rename
// pattern so interrupted writes leave the original file intact.
//
// The caller is responsible for ensuring the parent directory exists.
// Permissions are applied to the final file via the perm parameter.
func AtomicWriteFileFS(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Same directory keeps the rename on one filesystem.
	tmp, err := afero.TempFile(fs, dir, ".provision-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	tmpName := tmp.Name()
	defer func() {
		// Only remove if rename failed (file still exists)
		if _, statErr := fs.Stat(tmpName); statErr == nil {
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	if err := fs.Chmod(tmpName, perm); err != nil {
		return errors.Wrap(err, "setting file permissions")
	}

	if err := fs.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}

	return nil
}

// AtomicWriteJSON writes v as indented JSON to path atomically.
// Uses 2-space indentation and appends a trailing newline.
//
// The caller is responsible for ensuring the parent directory exists.
// The file is created with 0644 permissions.
func AtomicWriteJSON(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling JSON")
	}
	data = append(data, '\n')

	return AtomicWriteFileFS(fs, path, data, 0o644)
}

// AtomicWriteYAML writes v as YAML to path atomically with 0644 permissions.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWriteYAML(fs afero.Fs, path string, v any) (err error) {
	// yaml.Marshal panics on unmarshalable types; recover and return error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	return AtomicWriteFileFS(fs, path, data, 0o644)
}

// AtomicWriteEncoded picks JSON or YAML from the file extension
// (.json, .yaml, .yml) and writes v atomically.
func AtomicWriteEncoded(fs afero.Fs, path string, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return AtomicWriteJSON(fs, path, v)
	case ".yaml", ".yml":
		return AtomicWriteYAML(fs, path, v)
	default:
		return errors.Wrap(ErrUnsupportedFormat, filepath.Ext(path))
	}
}
