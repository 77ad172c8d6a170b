package catalog

import (
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/provision/internal/errors"
	"github.com/thoreinstein/provision/pkg/fileutil"
)

// ErrInvalidRequirement is returned for override entries missing an id or kind.
var ErrInvalidRequirement = errors.New("invalid requirement")

// Load reads a catalog file. The format follows the extension:
// .yaml/.yml or .toml.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data, err := fileutil.ReadFileWithLimit(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog %s", path)
	}

	var c Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".toml":
		err = toml.Unmarshal(data, &c)
	default:
		return nil, errors.Newf("catalog %s: unsupported extension %q", path, filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing catalog %s", path)
	}

	for i, r := range c.Requirements {
		if r.ID == "" || r.Kind == "" {
			return nil, errors.Wrapf(ErrInvalidRequirement, "catalog %s: entry %d needs id and kind", path, i)
		}
		if r.Name == "" {
			c.Requirements[i].Name = r.ID
		}
	}
	return &c, nil
}
