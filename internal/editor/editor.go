// Package editor launches the user's preferred text editor on a file.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/provision/internal/errors"
)

// Launcher opens files in an interactive editor.
type Launcher struct {
	Getenv   func(string) string
	LookPath func(string) (string, error)
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// New returns a Launcher bound to the process environment and terminal.
func New() *Launcher {
	return &Launcher{
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Open runs the editor on path and waits for it to exit.
func (l *Launcher) Open(ctx context.Context, path string) error {
	argv := l.Command()
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// Command returns the editor argv. $EDITOR wins over $VISUAL; both may
// carry flags ("code --wait"). Without either, nano is preferred over vi.
func (l *Launcher) Command() []string {
	for _, key := range []string{"EDITOR", "VISUAL"} {
		if fields := strings.Fields(l.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}
	if _, err := l.LookPath("nano"); err == nil {
		return []string{"nano"}
	}
	return []string{"vi"}
}
