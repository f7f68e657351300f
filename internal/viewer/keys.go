package viewer

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// KeyType classifies a key event.
type KeyType int

const (
	KeyRune KeyType = iota
	KeyUp
	KeyDown
	KeyEsc
	KeyEnter
	KeyBackspace
	KeyCtrlC
	KeyUnknown
)

// Key is one decoded key press. Rune is set for KeyRune.
type Key struct {
	Type KeyType
	Rune rune
}

// R is shorthand for a printable key.
func R(r rune) Key { return Key{Type: KeyRune, Rune: r} }

// KeyReader decodes raw terminal input into key events.
type KeyReader struct {
	r *bufio.Reader
}

// NewKeyReader wraps r, which should be a terminal in raw mode.
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{r: bufio.NewReader(r)}
}

// ReadKey blocks for the next key.
func (k *KeyReader) ReadKey() (Key, error) {
	b, err := k.r.ReadByte()
	if err != nil {
		return Key{}, err
	}
	switch b {
	case 0x03:
		return Key{Type: KeyCtrlC}, nil
	case '\r', '\n':
		return Key{Type: KeyEnter}, nil
	case 0x7f, 0x08:
		return Key{Type: KeyBackspace}, nil
	case 0x1b:
		return k.escape()
	}
	if b < 0x20 {
		return Key{Type: KeyUnknown}, nil
	}
	if b < utf8.RuneSelf {
		return R(rune(b)), nil
	}
	if err := k.r.UnreadByte(); err != nil {
		return Key{}, err
	}
	r, _, err := k.r.ReadRune()
	if err != nil {
		return Key{}, err
	}
	return R(r), nil
}

// escape decodes the bytes following ESC. A lone ESC, with nothing else
// buffered, is the Esc key.
func (k *KeyReader) escape() (Key, error) {
	if k.r.Buffered() == 0 {
		return Key{Type: KeyEsc}, nil
	}
	next, err := k.r.ReadByte()
	if err != nil {
		return Key{}, err
	}
	if next != '[' && next != 'O' {
		_ = k.r.UnreadByte()
		return Key{Type: KeyEsc}, nil
	}
	code, err := k.r.ReadByte()
	if err != nil {
		return Key{}, err
	}
	switch code {
	case 'A':
		return Key{Type: KeyUp}, nil
	case 'B':
		return Key{Type: KeyDown}, nil
	}
	// Consume the rest of longer sequences such as "\x1b[3~".
	for code >= '0' && code <= '9' || code == ';' {
		if code, err = k.r.ReadByte(); err != nil {
			return Key{}, err
		}
	}
	return Key{Type: KeyUnknown}, nil
}
