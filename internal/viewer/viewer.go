// Package viewer is the interactive notes browser. The browser is a state
// machine driven by key events; it reaches the note index only through the
// search and remove functions it is given.
package viewer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/pkg/utils"
)

// Mode is the viewer state.
type Mode int

const (
	// Browsing shows the current list; arrows move, d deletes, q quits.
	Browsing Mode = iota
	// SearchingLexical filters notes by substring as the query is typed.
	SearchingLexical
	// SearchingSemantic ranks notes by the note index as the query is typed.
	SearchingSemantic
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browse"
	case SearchingLexical:
		return "search"
	case SearchingSemantic:
		return "semantic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// SearchFunc returns note texts ranked by similarity to query.
type SearchFunc func(ctx context.Context, query string, k int) ([]string, error)

// RemoveFunc removes every indexed note with exactly this text.
type RemoveFunc func(ctx context.Context, text string) (int, error)

// NoteSource is the notes file.
type NoteSource interface {
	Read() ([]notes.Note, error)
	Delete(index int) (notes.Note, error)
}

// Viewer holds the browser state.
type Viewer struct {
	source NoteSource
	search SearchFunc
	remove RemoveFunc
	limit  int
	logger *zap.Logger

	mode Mode
	// listing is the mode that produced the visible list; it outlives mode
	// when Enter leaves a search to browse its results.
	listing  Mode
	query    string
	all      []notes.Note
	visible  []notes.Note
	selected int
	status   string
	done     bool
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Viewer) { v.logger = utils.LoggerOrNop(l) }
}

// WithLimit sets how many semantic results are requested per keystroke.
func WithLimit(k int) Option {
	return func(v *Viewer) {
		if k > 0 {
			v.limit = k
		}
	}
}

// New loads the notes and starts in Browsing mode. search and remove may be
// nil when no note index is available; semantic mode then falls back to the
// lexical filter.
func New(source NoteSource, search SearchFunc, remove RemoveFunc, opts ...Option) (*Viewer, error) {
	v := &Viewer{
		source: source,
		search: search,
		remove: remove,
		limit:  20,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.reload(); err != nil {
		return nil, err
	}
	v.visible = v.all
	return v, nil
}

// Mode returns the current state.
func (v *Viewer) Mode() Mode { return v.mode }

// Query returns the search text.
func (v *Viewer) Query() string { return v.query }

// Visible returns the notes currently listed.
func (v *Viewer) Visible() []notes.Note { return v.visible }

// Selected returns the index into Visible of the highlighted note, or -1.
func (v *Viewer) Selected() int {
	if len(v.visible) == 0 {
		return -1
	}
	return v.selected
}

// Status returns the last status message.
func (v *Viewer) Status() string { return v.status }

// Done reports whether the user quit.
func (v *Viewer) Done() bool { return v.done }

// HandleKey applies one key event.
func (v *Viewer) HandleKey(ctx context.Context, k Key) {
	if k.Type == KeyCtrlC {
		v.done = true
		return
	}
	switch k.Type {
	case KeyUp:
		v.move(-1)
		return
	case KeyDown:
		v.move(1)
		return
	}
	if v.mode == Browsing {
		v.browseKey(ctx, k)
		return
	}
	v.searchKey(ctx, k)
}

func (v *Viewer) browseKey(ctx context.Context, k Key) {
	if k.Type == KeyEsc {
		v.listing = Browsing
		v.query = ""
		v.status = ""
		v.refresh(ctx)
		return
	}
	if k.Type != KeyRune {
		return
	}
	switch k.Rune {
	case 'q':
		v.done = true
	case '/':
		v.enter(ctx, SearchingLexical)
	case '?':
		v.enter(ctx, SearchingSemantic)
	case 'd':
		v.deleteSelected(ctx)
	case 'k':
		v.move(-1)
	case 'j':
		v.move(1)
	}
}

func (v *Viewer) enter(ctx context.Context, m Mode) {
	v.mode = m
	v.listing = m
	v.query = ""
	v.status = ""
	v.refresh(ctx)
}

func (v *Viewer) searchKey(ctx context.Context, k Key) {
	switch k.Type {
	case KeyEsc:
		v.mode = Browsing
		v.listing = Browsing
		v.query = ""
		v.status = ""
		v.refresh(ctx)
	case KeyEnter:
		// Keep the current results and browse them.
		v.mode = Browsing
	case KeyBackspace:
		if r := []rune(v.query); len(r) > 0 {
			v.query = string(r[:len(r)-1])
			v.refresh(ctx)
		}
	case KeyRune:
		v.query += string(k.Rune)
		v.refresh(ctx)
	}
}

func (v *Viewer) move(delta int) {
	if len(v.visible) == 0 {
		return
	}
	v.selected = min(max(v.selected+delta, 0), len(v.visible)-1)
}

// refresh recomputes the visible list for the current mode and query.
func (v *Viewer) refresh(ctx context.Context) {
	switch {
	case v.listing == SearchingSemantic && v.query != "":
		v.visible = v.semantic(ctx)
	default:
		v.visible = notes.Filter(v.all, v.query)
	}
	if v.selected >= len(v.visible) {
		v.selected = max(len(v.visible)-1, 0)
	}
}

// semantic ranks notes through the note index, falling back to the lexical
// filter when the index is unavailable.
func (v *Viewer) semantic(ctx context.Context) []notes.Note {
	if v.search == nil {
		v.status = "semantic search unavailable, filtering by text"
		return notes.Filter(v.all, v.query)
	}
	texts, err := v.search(ctx, v.query, v.limit)
	if err != nil {
		v.logger.Warn("semantic search failed, using text filter", zap.Error(err))
		v.status = "semantic search failed, filtering by text"
		return notes.Filter(v.all, v.query)
	}
	v.status = ""
	return matchTexts(v.all, texts)
}

// matchTexts maps ranked texts to notes. Repeated texts map to successive
// notes with that text; texts with no note in the file are skipped.
func matchTexts(all []notes.Note, texts []string) []notes.Note {
	byText := make(map[string][]notes.Note)
	for _, n := range all {
		byText[n.Text] = append(byText[n.Text], n)
	}
	out := make([]notes.Note, 0, len(texts))
	for _, t := range texts {
		if q := byText[t]; len(q) > 0 {
			out = append(out, q[0])
			byText[t] = q[1:]
		}
	}
	return out
}

func (v *Viewer) deleteSelected(ctx context.Context) {
	if len(v.visible) == 0 {
		return
	}
	target := v.visible[v.selected]
	removed, err := v.source.Delete(target.Index)
	if err != nil {
		v.status = fmt.Sprintf("delete failed: %v", err)
		return
	}
	v.status = fmt.Sprintf("deleted %q", utils.Truncate(removed.Text, 40))
	if v.remove != nil {
		if _, err := v.remove(ctx, removed.Text); err != nil {
			v.logger.Error("remove from note index failed", zap.Error(err))
			v.status = fmt.Sprintf("deleted from notes, index not updated: %v", err)
		}
	}
	if err := v.reload(); err != nil {
		v.status = fmt.Sprintf("reload failed: %v", err)
		return
	}
	v.refresh(ctx)
}

func (v *Viewer) reload() error {
	all, err := v.source.Read()
	if err != nil {
		return fmt.Errorf("read notes: %w", err)
	}
	v.all = all
	return nil
}
