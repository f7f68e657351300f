package keyword

import (
	"context"

	"github.com/hyperjump/pad/internal/notes"
)

// Hit is a keyword result resolved to its note.
type Hit struct {
	Note  notes.Note `json:"note"`
	Score float64    `json:"score"`
}

// SearchNotes indexes all in memory and runs query over it. When nothing
// matches, the returned suggestion holds a spelling-corrected query if the
// indexed vocabulary offers one.
func SearchNotes(ctx context.Context, all []notes.Note, query string, limit int, opts *SearchOptions) ([]Hit, string, error) {
	idx, err := NewNoteIndex()
	if err != nil {
		return nil, "", err
	}
	defer idx.Close()
	if err := idx.Rebuild(all); err != nil {
		return nil, "", err
	}

	results, err := idx.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, "", err
	}
	byIndex := make(map[int]notes.Note, len(all))
	for _, n := range all {
		byIndex[n.Index] = n
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if n, ok := byIndex[r.Index]; ok {
			hits = append(hits, Hit{Note: n, Score: r.Score})
		}
	}

	var suggestion string
	if len(hits) == 0 {
		suggestion = NewSpellChecker(idx).SuggestedQuery(query)
	}
	return hits, suggestion, nil
}
