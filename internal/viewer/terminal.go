package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[?25l"
	leaveAltScreen = "\x1b[?25h\x1b[?1049l"
	clearScreen    = "\x1b[H\x1b[2J"
)

// ErrNotTerminal is returned by Run when stdin is not a terminal.
var ErrNotTerminal = errors.New("viewer requires an interactive terminal")

// Run puts in into raw mode and drives v until the user quits or ctx is done.
func Run(ctx context.Context, v *Viewer, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, state) }()

	_, _ = io.WriteString(out, enterAltScreen)
	defer func() { _, _ = io.WriteString(out, leaveAltScreen) }()

	keys := NewKeyReader(in)
	for !v.Done() && ctx.Err() == nil {
		width, height, err := term.GetSize(fd)
		if err != nil {
			width, height = 80, 24
		}
		_, _ = io.WriteString(out, clearScreen)
		if err := v.Render(out, Screen{Width: width, Height: height, Color: true}); err != nil {
			return err
		}
		k, err := keys.ReadKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		v.HandleKey(ctx, k)
	}
	return nil
}
