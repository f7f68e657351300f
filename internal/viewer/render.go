package viewer

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/pkg/utils"
)

const (
	colorReset  = "\x1b[0m"
	colorCyan   = "\x1b[36m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorGray   = "\x1b[90m"
	reverse     = "\x1b[7m"
)

// Screen is the render target size.
type Screen struct {
	Width  int
	Height int
	// Color enables ANSI styling.
	Color bool
}

// Render draws the viewer. Lines end in "\r\n" so output is correct in raw mode.
func (v *Viewer) Render(w io.Writer, s Screen) error {
	if s.Height <= 0 {
		s.Height = 24
	}
	if s.Width <= 0 {
		s.Width = 80
	}
	var b strings.Builder
	line := func(text string) {
		b.WriteString(text)
		b.WriteString("\r\n")
	}
	style := func(code, text string) string {
		if !s.Color {
			return text
		}
		return code + text + colorReset
	}

	line(fmt.Sprintf("pad: %d notes", len(v.all)))
	switch v.mode {
	case SearchingLexical:
		line(style(colorYellow, "Search: "+v.query))
	case SearchingSemantic:
		line(style(colorYellow, "Semantic: "+v.query))
	default:
		if v.query != "" {
			line(style(colorGray, fmt.Sprintf("Results for %q (Esc to clear)", v.query)))
		} else {
			line(style(colorGray, "Press '/' to search, '?' for semantic search"))
		}
	}

	// header, search bar, status, help
	rows := max(s.Height-4, 1)
	first := 0
	if v.selected >= rows {
		first = v.selected - rows + 1
	}
	for i := first; i < len(v.visible) && i < first+rows; i++ {
		text := formatNote(v.visible[i], s.Width-3, style)
		if i == v.selected {
			line(style(reverse, ">> ") + text)
		} else {
			line("   " + text)
		}
	}
	if len(v.visible) == 0 {
		line(style(colorGray, "   (no notes)"))
	}

	line(style(colorGray, v.status))
	help := "↑↓ navigate  d delete  / search  ? semantic  q quit"
	if v.mode != Browsing {
		help = "type to search  Enter browse results  Esc cancel"
	}
	line(style(colorGray, help))

	_, err := io.WriteString(w, b.String())
	return err
}

func formatNote(n notes.Note, width int, style func(code, text string) string) string {
	ts := ""
	if !n.Timestamp.IsZero() {
		ts = style(colorCyan, "["+n.Timestamp.Format(notes.TimeLayout)+"]") + " "
	}
	cat := ""
	if n.Category != "" {
		cat = style(colorGreen, "["+n.Category+"]") + " "
	}
	room := width - len(notes.TimeLayout) - len(n.Category) - 6
	return ts + cat + utils.Truncate(n.Text, max(room, 10))
}
