// Package keyword provides exact-term search over notes with Bleve, as a
// complement to semantic search, plus spelling suggestions from the indexed
// vocabulary.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/pad/internal/notes"
)

const (
	fieldText     = "text"
	fieldCategory = "category"
)

// SearchOptions tunes a keyword search. Nil means defaults.
type SearchOptions struct {
	// CategoryBoost multiplies the score of matches in the category. Values
	// <= 1 search text and category as one field.
	CategoryBoost float64
	// Fuzzy matches terms within Fuzziness edits.
	Fuzzy bool
	// Fuzziness is the maximum edit distance (1 or 2, default 1).
	Fuzziness int
}

// Result is one keyword hit. Index is the note's position in the notes file.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type noteDoc struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NoteIndex is an in-memory Bleve index over the notes file.
type NoteIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so a query
	// matches the word as typed.
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldText, text)
	doc.AddFieldMappingsAt(fieldCategory, text)
	im.DefaultMapping = doc
	return im
}

// NewNoteIndex returns an empty index.
func NewNoteIndex() (*NoteIndex, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &NoteIndex{index: idx}, nil
}

// Rebuild replaces the index contents with all.
func (n *NoteIndex) Rebuild(all []notes.Note) error {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := idx.NewBatch()
	for _, note := range all {
		if err := batch.Index(strconv.Itoa(note.Index), noteDoc{Text: note.Text, Category: note.Category}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index note %d: %w", note.Index, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("index notes: %w", err)
	}

	n.mu.Lock()
	old := n.index
	n.index = idx
	n.mu.Unlock()
	return old.Close()
}

// Search returns up to limit notes matching query, best first.
func (n *NoteIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	if o.Fuzziness <= 0 {
		o.Fuzziness = 1
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if o.CategoryBoost <= 1 {
		return n.run(buildQuery(query, "", o), limit)
	}

	// Additive merge of text and boosted category scores.
	size := max(limit*2, 50)
	textHits, err := n.run(buildQuery(query, fieldText, o), size)
	if err != nil {
		return nil, err
	}
	catHits, err := n.run(buildQuery(query, fieldCategory, o), size)
	if err != nil {
		return nil, err
	}
	scores := make(map[int]float64, len(textHits)+len(catHits))
	for _, h := range textHits {
		scores[h.Index] += h.Score
	}
	for _, h := range catHits {
		scores[h.Index] += h.Score * o.CategoryBoost
	}
	out := make([]Result, 0, len(scores))
	for i, s := range scores {
		out = append(out, Result{Index: i, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n *NoteIndex) run(q blevequery.Query, size int) ([]Result, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := n.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Result{Index: i, Score: hit.Score})
	}
	return out, nil
}

// buildQuery matches any query term in field (all fields when empty).
func buildQuery(query, field string, o SearchOptions) blevequery.Query {
	if !o.Fuzzy {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	terms := tokenizeQuery(query)
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(o.Fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// DocCount returns the number of indexed notes.
func (n *NoteIndex) DocCount() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.index.DocCount()
}

// Terms returns every indexed term with its document frequency, taking the
// larger of the text and category counts.
func (n *NoteIndex) Terms() (map[string]int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	terms := make(map[string]int)
	for _, field := range []string{fieldText, fieldCategory} {
		dict, err := n.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if c := int(entry.Count); c > terms[entry.Term] {
				terms[entry.Term] = c
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// Close closes the Bleve index.
func (n *NoteIndex) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index.Close()
}
