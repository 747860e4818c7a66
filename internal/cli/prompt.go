package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
)

// ErrPromptAborted is returned when the user ends input at a retag prompt.
var ErrPromptAborted = errors.New("retag prompt aborted")

// RetagPrompter asks, one keypress at a time, whether an already-tagged
// transaction should be retagged.
type RetagPrompter struct {
	in             *os.File
	out            io.Writer
	reader         *bufio.Reader
	ignoreCategory bool
}

// NewRetagPrompter reads keys from in and writes previews to out.
func NewRetagPrompter(in *os.File, out io.Writer, ignoreCategory bool) *RetagPrompter {
	return &RetagPrompter{
		in:             in,
		out:            out,
		reader:         bufio.NewReader(in),
		ignoreCategory: ignoreCategory,
	}
}

// Confirm satisfies sync.Options.ConfirmRetag.
func (p *RetagPrompter) Confirm(_ context.Context, u *appsync.Update) (bool, error) {
	fmt.Fprintln(p.out, "\nTransaction already tagged:")
	PrintUpdate(p.out, u, p.ignoreCategory)
	fmt.Fprint(p.out, "Update tag to proposed? [Yn] ")

	key, err := p.readKey()
	fmt.Fprintln(p.out)
	if err != nil {
		return false, err
	}
	return acceptsRetag(key), nil
}

// readKey reads a single byte, in raw mode when attached to a terminal so
// no Enter is needed.
func (p *RetagPrompter) readKey() (byte, error) {
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return 0, fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()
	}

	key, err := p.reader.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, ErrPromptAborted
	}
	if err != nil {
		return 0, err
	}
	// Ctrl-C and Ctrl-D arrive as bytes in raw mode.
	if key == 0x03 || key == 0x04 {
		return 0, ErrPromptAborted
	}
	return key, nil
}

func acceptsRetag(key byte) bool {
	switch key {
	case 'Y', 'y', '\r', '\n':
		return true
	}
	return false
}
