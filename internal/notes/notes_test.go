package notes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	return func() time.Time { return t }
}

func TestNote_StringAndParse(t *testing.T) {
	n := Note{Timestamp: time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local), Category: "work", Text: "ship it"}
	line := n.String()
	if line != "[2024-03-09 14:05:07] [work] ship it" {
		t.Fatalf("String() = %q", line)
	}
	got := Parse(line)
	if !got.Timestamp.Equal(n.Timestamp) || got.Category != "work" || got.Text != "ship it" {
		t.Errorf("Parse(%q) = %+v", line, got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line     string
		category string
		text     string
	}{
		{"[2024-01-01 00:00:00] [general] buy milk", "general", "buy milk"},
		{"[2024-01-01 00:00:00] buy milk", "", "buy milk"},
		{"just text", "", "just text"},
		{"[unterminated text", "", "[unterminated text"},
		{"[2024-01-01 00:00:00] [a] text with ] bracket", "a", "text with ] bracket"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Parse(tt.line)
			if got.Category != tt.category || got.Text != tt.text {
				t.Errorf("got category=%q text=%q", got.Category, got.Text)
			}
		})
	}
}

func TestFile_AppendRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "notes.txt")
	f := NewFile(path, WithClock(fixedClock()))

	if notes, err := f.Read(); err != nil || len(notes) != 0 {
		t.Fatalf("Read missing file: %v, %v", notes, err)
	}
	if _, err := f.Append("", "buy\nmilk"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Append("work", "ship it"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "[2024-03-09 14:05:07] [general] buy milk\n[2024-03-09 14:05:07] [work] ship it\n"
	if string(data) != want {
		t.Errorf("file content:\n%s\nwant:\n%s", data, want)
	}

	notes, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 || notes[1].Index != 1 || notes[1].Category != "work" {
		t.Errorf("Read = %+v", notes)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"buy  milk\nand eggs", "buy milk and eggs"},
		{"\t lead and trail \r\n", "lead and trail"},
		{"already clean", "already clean"},
		{" \n ", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFile_AppendStoresCleanText(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "notes.txt"), WithClock(fixedClock()))
	raw := "buy  milk\nand\teggs"
	n, err := f.Append("", raw)
	if err != nil {
		t.Fatal(err)
	}
	if n.Text != CleanText(raw) {
		t.Errorf("Append text = %q, want %q", n.Text, CleanText(raw))
	}
	removed, err := f.DeleteText(CleanText(raw))
	if err != nil || removed != 1 {
		t.Errorf("DeleteText(CleanText) = %d, %v; want 1", removed, err)
	}
}

func TestFile_AppendEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "notes.txt"))
	if _, err := f.Append("x", "  \n "); err == nil {
		t.Error("expected error for empty note")
	}
}

func TestFile_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "[2024-01-01 00:00:00] [a] one\n\nfree-form line\n[2024-01-01 00:00:00] [b] three\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path)

	removed, err := f.Delete(0)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Text != "one" {
		t.Errorf("removed %+v", removed)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "free-form line\n[2024-01-01 00:00:00] [b] three\n" {
		t.Errorf("after delete: %q", data)
	}

	if _, err := f.Delete(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Delete(5) err = %v", err)
	}
}

func TestFile_DeleteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "[2024-01-01 00:00:00] [a] dup\n[2024-01-01 00:00:00] [b] keep\n[2024-01-02 00:00:00] [c] dup\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path)

	n, err := f.DeleteText("dup")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[2024-01-01 00:00:00] [b] keep\n" {
		t.Errorf("after delete: %q", data)
	}

	n, err = f.DeleteText("absent")
	if err != nil || n != 0 {
		t.Errorf("DeleteText(absent) = %d, %v", n, err)
	}
}

func TestFilter(t *testing.T) {
	all := []Note{
		{Category: "Groceries", Text: "buy milk"},
		{Category: "work", Text: "Ship the Release"},
		{Category: "general", Text: "call mom"},
	}
	tests := []struct {
		term string
		want int
	}{
		{"", 3},
		{"GROC", 1},
		{"release", 1},
		{"l", 3},
		{"zzz", 0},
	}
	for _, tt := range tests {
		if got := Filter(all, tt.term); len(got) != tt.want {
			t.Errorf("Filter(%q) = %d notes, want %d", tt.term, len(got), tt.want)
		}
	}
}
