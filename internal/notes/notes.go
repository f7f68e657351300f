// Package notes reads and writes the plain-text notes file, one note per line:
//
//	[2006-01-02 15:04:05] [category] text
package notes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the timestamp format of a note line.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultCategory is used when a note is added without one.
const DefaultCategory = "general"

// ErrOutOfRange is returned by Delete for an index past the end of the file.
var ErrOutOfRange = errors.New("note index out of range")

// Note is one line of the notes file.
type Note struct {
	// Index is the note's line number among the non-blank lines of the file.
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`

	line string
}

// String formats the note as a notes-file line.
func (n Note) String() string {
	return fmt.Sprintf("[%s] [%s] %s", n.Timestamp.Format(TimeLayout), n.Category, n.Text)
}

// Parse splits a notes-file line. Lines that do not follow the format are
// kept whole as the text.
func Parse(line string) Note {
	n := Note{line: line}
	ts, rest, ok := bracketed(line)
	if !ok {
		n.Text = strings.TrimSpace(line)
		return n
	}
	if t, err := time.ParseInLocation(TimeLayout, ts, time.Local); err == nil {
		n.Timestamp = t
	}
	if cat, after, ok := bracketed(rest); ok {
		n.Category = cat
		rest = after
	}
	n.Text = strings.TrimSpace(rest)
	return n
}

// bracketed returns the contents of a leading "[...]" and what follows it.
func bracketed(s string) (inner, rest string, ok bool) {
	s = strings.TrimLeft(s, " ")
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", s, false
	}
	return s[1:end], s[end+1:], true
}

// File is the notes file on disk.
type File struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option configures a File.
type Option func(*File)

// WithClock sets the time source for new notes.
func WithClock(now func() time.Time) Option {
	return func(f *File) { f.now = now }
}

// NewFile returns a handle for the notes file at path. The file is created on
// first Append.
func NewFile(path string, opts ...Option) *File {
	f := &File{path: path, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the notes file path.
func (f *File) Path() string { return f.path }

// CleanText collapses every run of whitespace, newlines included, to a single
// space. Append stores text in this form, so callers that also index a note
// must index CleanText(text) for removals by file text to match.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Append writes a new note line with its text passed through CleanText.
func (f *File) Append(category, text string) (Note, error) {
	text = CleanText(text)
	if text == "" {
		return Note{}, errors.New("empty note")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	n := Note{Timestamp: f.now().Truncate(time.Second), Category: category, Text: text}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return Note{}, fmt.Errorf("create notes directory: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Note{}, fmt.Errorf("open notes file: %w", err)
	}
	if _, err := fh.WriteString(n.String() + "\n"); err != nil {
		_ = fh.Close()
		return Note{}, fmt.Errorf("write note: %w", err)
	}
	if err := fh.Close(); err != nil {
		return Note{}, fmt.Errorf("close notes file: %w", err)
	}
	return n, nil
}

// Read returns all notes in file order. A missing file has no notes.
func (f *File) Read() ([]Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() ([]Note, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open notes file: %w", err)
	}
	defer fh.Close()

	var out []Note
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := Parse(line)
		n.Index = len(out)
		out = append(out, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read notes file: %w", err)
	}
	return out, nil
}

// Delete removes the note at index and returns it.
func (f *File) Delete(index int) (Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return Note{}, err
	}
	if index < 0 || index >= len(all) {
		return Note{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(all))
	}
	removed := all[index]
	all = append(all[:index], all[index+1:]...)
	if err := f.write(all); err != nil {
		return Note{}, err
	}
	return removed, nil
}

// DeleteText removes every note whose text equals text and returns how many
// were removed. The file is only rewritten when something matched.
func (f *File) DeleteText(text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return 0, err
	}
	kept := all[:0:0]
	for _, n := range all {
		if n.Text != text {
			kept = append(kept, n)
		}
	}
	removed := len(all) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := f.write(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (f *File) write(all []Note) error {
	var b strings.Builder
	for _, n := range all {
		if n.line != "" {
			b.WriteString(n.line)
		} else {
			b.WriteString(n.String())
		}
		b.WriteByte('\n')
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write notes file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace notes file: %w", err)
	}
	return nil
}

// Filter returns the notes whose category or text contains term, ignoring
// case. An empty term matches everything.
func Filter(all []Note, term string) []Note {
	if term == "" {
		return all
	}
	term = strings.ToLower(term)
	var out []Note
	for _, n := range all {
		if strings.Contains(strings.ToLower(n.Category), term) ||
			strings.Contains(strings.ToLower(n.Text), term) {
			out = append(out, n)
		}
	}
	return out
}
