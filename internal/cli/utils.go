// Package cli formats pad command output.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hyperjump/pad/internal/keyword"
	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/internal/semantic"
	"github.com/hyperjump/pad/pkg/utils"
)

// SearchOutputFormat is the format for command output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one line per result.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

const previewLen = 200

// ParseFormat validates a -format flag value.
func ParseFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, compact, json)", s)
	}
}

// Hit is one ranked semantic result.
type Hit struct {
	Rank     int     `json:"rank"`
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
}

// SearchOutput is the JSON shape of a semantic search.
type SearchOutput struct {
	Query   string `json:"query"`
	TookMs  int64  `json:"took_ms"`
	Results []Hit  `json:"results"`
}

// RankResults drops results farther than maxDistance (when positive) and
// numbers the rest from 1.
func RankResults(results []semantic.Result, maxDistance float64) []Hit {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if maxDistance > 0 && float64(r.Distance) > maxDistance {
			continue
		}
		hits = append(hits, Hit{Rank: len(hits) + 1, Text: r.Text, Distance: r.Distance})
	}
	return hits
}

// WriteSearchResults writes semantic results to w in the given format.
func WriteSearchResults(w io.Writer, out SearchOutput, format SearchOutputFormat) error {
	if out.Results == nil {
		out.Results = []Hit{}
	}
	switch format {
	case OutputJSON:
		return writeJSON(w, out)
	case OutputCompact:
		for _, h := range out.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\n", h.Rank, h.Distance, h.Text)
		}
		return nil
	default:
		fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", len(out.Results), out.Query, out.TookMs)
		for _, h := range out.Results {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Rank: %d | Distance: %.4f\n", h.Rank, h.Distance)
			fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(h.Text, previewLen))
		}
		return nil
	}
}

// KeywordOutput is the JSON shape of a keyword search.
type KeywordOutput struct {
	Query      string        `json:"query"`
	Results    []keyword.Hit `json:"results"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// WriteKeywordResults writes keyword hits to w. A suggestion is shown when
// nothing matched.
func WriteKeywordResults(w io.Writer, out KeywordOutput, format SearchOutputFormat) error {
	if out.Results == nil {
		out.Results = []keyword.Hit{}
	}
	switch format {
	case OutputJSON:
		return writeJSON(w, out)
	case OutputCompact:
		for i, h := range out.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\n", i+1, h.Score, h.Note.String())
		}
	default:
		fmt.Fprintf(w, "\nFound %d keyword matches for %q\n\n", len(out.Results), out.Query)
		for i, h := range out.Results {
			fmt.Fprintf(w, "%d. %s (score %.4f)\n", i+1, h.Note.String(), h.Score)
		}
	}
	if out.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", out.Suggestion)
	}
	return nil
}

// WriteNotes lists notes in file order.
func WriteNotes(w io.Writer, all []notes.Note, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		if all == nil {
			all = []notes.Note{}
		}
		return writeJSON(w, all)
	case OutputCompact:
		for _, n := range all {
			fmt.Fprintln(w, n.Text)
		}
	default:
		if len(all) == 0 {
			fmt.Fprintln(w, "No notes yet.")
			return nil
		}
		for _, n := range all {
			fmt.Fprintf(w, "%3d  %s\n", n.Index+1, n.String())
		}
	}
	return nil
}

// WriteStatus writes the index status.
func WriteStatus(w io.Writer, st semantic.Status, notesPath string, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			semantic.Status
			NotesFile string `json:"notes_file"`
		}{st, notesPath})
	}
	fmt.Fprintf(w, "Notes file:  %s\n", notesPath)
	fmt.Fprintf(w, "Store:       %s\n", st.StorePath)
	fmt.Fprintf(w, "Records:     %d\n", st.Records)
	fmt.Fprintf(w, "Dimensions:  %d\n", st.Dimensions)
	fmt.Fprintf(w, "Index:       %s (%s)\n", st.IndexType, st.Metric)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
