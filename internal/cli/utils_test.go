package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/hyperjump/pad/internal/keyword"
	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/internal/semantic"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchOutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRankResults(t *testing.T) {
	results := []semantic.Result{
		{Text: "a", Distance: 0.1},
		{Text: "b", Distance: 0.5},
		{Text: "c", Distance: 0.9},
	}

	all := RankResults(results, 0)
	if len(all) != 3 || all[2].Rank != 3 || all[2].Text != "c" {
		t.Errorf("RankResults(no cutoff) = %+v", all)
	}

	near := RankResults(results, 0.5)
	if len(near) != 2 || near[0].Rank != 1 || near[1].Text != "b" {
		t.Errorf("RankResults(0.5) = %+v", near)
	}

	if got := RankResults(nil, 0); got == nil || len(got) != 0 {
		t.Errorf("RankResults(nil) = %#v, want empty slice", got)
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	out := SearchOutput{
		Query:   "groceries",
		TookMs:  3,
		Results: []Hit{{Rank: 1, Text: "buy milk", Distance: 0.12}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded SearchOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "groceries" || len(decoded.Results) != 1 || decoded.Results[0].Text != "buy milk" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_JSON_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, SearchOutput{Query: "q"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty results should encode as []:\n%s", buf.String())
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	out := SearchOutput{
		Query:   "foo",
		TookMs:  10,
		Results: []Hit{{Rank: 1, Text: "Short content", Distance: 0.25}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputText); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, sub := range []string{"Found 1 results", `"foo"`, "10ms", "Rank: 1", "Distance: 0.2500", "Short content"} {
		if !strings.Contains(s, sub) {
			t.Errorf("text output missing %q:\n%s", sub, s)
		}
	}
}

func TestWriteSearchResults_compact(t *testing.T) {
	out := SearchOutput{Results: []Hit{
		{Rank: 1, Text: "one", Distance: 0},
		{Rank: 2, Text: "two", Distance: 0.5},
	}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputCompact); err != nil {
		t.Fatal(err)
	}
	want := "1\t0.0000\tone\n2\t0.5000\ttwo\n"
	if buf.String() != want {
		t.Errorf("compact = %q, want %q", buf.String(), want)
	}
}

func TestWriteSearchResults_textTruncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, SearchOutput{Results: []Hit{{Rank: 1, Text: long}}}, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), long) || !strings.Contains(buf.String(), "...") {
		t.Error("long text should be truncated in text output")
	}
}

func testNote(i int, cat, text string) notes.Note {
	return notes.Note{
		Index:     i,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
		Category:  cat,
		Text:      text,
	}
}

func TestWriteKeywordResults(t *testing.T) {
	out := KeywordOutput{
		Query:   "milk",
		Results: []keyword.Hit{{Note: testNote(0, "shopping", "buy milk"), Score: 1.5}},
	}
	var buf bytes.Buffer
	if err := WriteKeywordResults(&buf, out, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[shopping] buy milk") {
		t.Errorf("text output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteKeywordResults(&buf, KeywordOutput{Query: "mlk", Suggestion: "milk"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Did you mean: milk") {
		t.Errorf("suggestion missing:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteKeywordResults(&buf, KeywordOutput{Query: "mlk", Suggestion: "milk"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded KeywordOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Suggestion != "milk" || decoded.Results == nil {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteNotes(t *testing.T) {
	all := []notes.Note{testNote(0, "a", "first"), testNote(1, "b", "second")}

	var buf bytes.Buffer
	if err := WriteNotes(&buf, all, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "  1  [2024-01-02 03:04:05] [a] first") {
		t.Errorf("text output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteNotes(&buf, all, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "first\nsecond\n" {
		t.Errorf("compact = %q", buf.String())
	}

	buf.Reset()
	if err := WriteNotes(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No notes yet.") {
		t.Errorf("empty = %q", buf.String())
	}

	buf.Reset()
	if err := WriteNotes(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json = %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := semantic.Status{Records: 3, Dimensions: 384, Metric: "cosine", IndexType: "hnsw", StorePath: "/n/embeddings.json"}

	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, "/n/notes.txt", OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"/n/notes.txt", "Records:     3", "384", "hnsw (cosine)"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("status missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, st, "/n/notes.txt", OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["records"] != float64(3) || decoded["notes_file"] != "/n/notes.txt" {
		t.Errorf("decoded = %v", decoded)
	}
}
