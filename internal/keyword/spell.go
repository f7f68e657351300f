package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is a spelling suggestion for one query term.
type Suggestion struct {
	Term      string  // The suggested term
	Distance  int     // Edit distance from the original term
	Frequency int     // Number of notes containing the term
	Score     float64 // Combined score for ranking
}

// SpellCheckResult is the outcome of checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// TermDictionary supplies the vocabulary for spell checking.
type TermDictionary interface {
	// Terms returns every known term with its document frequency.
	Terms() (map[string]int, error)
}

// SpellChecker suggests corrections for query terms missing from the notes.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu    sync.RWMutex
	terms map[string]int
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer notes than f.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh reloads the vocabulary. Call it after the index is rebuilt.
func (s *SpellChecker) Refresh() error {
	terms, err := s.dictionary.Terms()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.terms = terms
	s.mu.Unlock()
	return nil
}

func (s *SpellChecker) vocabulary() (map[string]int, error) {
	s.mu.RLock()
	terms := s.terms
	s.mu.RUnlock()
	if terms != nil {
		return terms, nil
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms, nil
}

// Check looks up each query term and proposes a corrected query.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	terms, err := s.vocabulary()
	if err != nil {
		return nil, err
	}

	result := &SpellCheckResult{OriginalQuery: query}
	var corrected []string
	for _, term := range tokenizeQuery(query) {
		if _, ok := terms[term]; ok {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.suggest(terms, term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns known terms close to term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	terms, err := s.vocabulary()
	if err != nil {
		return nil
	}
	return s.suggest(terms, strings.ToLower(term))
}

func (s *SpellChecker) suggest(terms map[string]int, term string) []Suggestion {
	var out []Suggestion
	for candidate, freq := range terms {
		if candidate == term || freq < s.minFreq {
			continue
		}
		if abs(len(candidate)-len(term)) > s.maxDistance {
			continue
		}
		d := DamerauLevenshteinDistance(term, candidate)
		if d > s.maxDistance {
			continue
		}
		out = append(out, Suggestion{
			Term:      candidate,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// SuggestedQuery returns the corrected query, or "" when nothing needs fixing.
func (s *SpellChecker) SuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return ""
	}
	return result.CorrectedQuery
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
