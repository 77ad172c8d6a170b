package pkgmgr

import (
	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// ErrUnknownManager is returned when a forced manager name is not registered.
var ErrUnknownManager = errors.New("unknown package manager")

func isExit(err error) bool {
	var ce *shell.CommandError
	return errors.As(err, &ce)
}
