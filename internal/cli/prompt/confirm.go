// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thoreinstein/provision/internal/errors"
)

// ErrInvalidAnswer is returned when a confirmation answer is not yes or no.
var ErrInvalidAnswer = errors.New("invalid answer")

// Mode controls how confirmations are answered.
type Mode int

const (
	// ModeInteractive reads answers from the reader.
	ModeInteractive Mode = iota
	// ModeAssumeYes answers yes without reading.
	ModeAssumeYes
	// ModeDefaults answers every prompt with its default without reading.
	ModeDefaults
)

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(question string, def bool) (bool, error)
}

// Prompter answers yes/no questions from a line-oriented reader.
// A single buffered reader is kept so consecutive prompts do not lose input.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
	mode   Mode
}

// New returns a Prompter on stdin/stderr.
func New(mode Mode) *Prompter {
	return NewWithIO(os.Stdin, os.Stderr, mode)
}

// NewWithIO creates a Prompter with custom reader and writer for testing.
func NewWithIO(r io.Reader, w io.Writer, mode Mode) *Prompter {
	return &Prompter{reader: bufio.NewReader(r), writer: w, mode: mode}
}

// Confirm asks question and returns the answer. Empty input and EOF select
// def. Unrecognised answers are asked again up to three times before
// ErrInvalidAnswer is returned.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	switch p.mode {
	case ModeAssumeYes:
		return true, nil
	case ModeDefaults:
		return def, nil
	}

	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for range 3 {
		fmt.Fprintf(p.writer, "%s %s ", question, hint)

		line, err := p.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return def, errors.Wrap(err, "reading answer")
		}
		atEOF := err != nil

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			if atEOF {
				fmt.Fprintln(p.writer)
			}
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if atEOF {
			return def, nil
		}
		fmt.Fprintln(p.writer, "Please answer y or n.")
	}
	return def, ErrInvalidAnswer
}
