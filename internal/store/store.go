// Package store holds the persisted list of notes and their embeddings.
//
// The position of a record in the store is its identity: the vector index is
// always built so that index id i refers to Records()[i]. Removing a record
// shifts every later position, so callers rebuild the index after a removal.
//
// Store is not safe for concurrent use. The semantic service owns a single
// Store and serializes access to it.
package store

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned when persisted data cannot be decoded into a
// consistent list of records.
var ErrMalformed = errors.New("malformed note store")

// NoteRecord is one persisted note.
type NoteRecord struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Persister reads and writes the full list of records.
// Save must replace the previous contents atomically.
type Persister interface {
	Load() ([]NoteRecord, error)
	Save(records []NoteRecord) error
	Path() string
	Close() error
}

// Store is an ordered, in-memory list of records backed by a Persister.
type Store struct {
	persister Persister
	records   []NoteRecord
}

// New returns an empty store. Call Load to read persisted records.
func New(p Persister) *Store {
	return &Store{persister: p}
}

// Load replaces the in-memory records with the persisted ones.
// A missing backing file yields an empty store.
func (s *Store) Load() error {
	records, err := s.persister.Load()
	if err != nil {
		return err
	}
	if err := validate(records); err != nil {
		return err
	}
	s.records = records
	return nil
}

// Save writes all records through the persister.
func (s *Store) Save() error {
	return s.persister.Save(s.records)
}

// Append adds a record at the end of the store. The embedding must match the
// dimensionality of the records already present.
func (s *Store) Append(r NoteRecord) error {
	if len(r.Embedding) == 0 {
		return fmt.Errorf("store: record %q has no embedding", r.Text)
	}
	if d := s.Dimensions(); d != 0 && d != len(r.Embedding) {
		return fmt.Errorf("store: embedding has %d dimensions, store has %d", len(r.Embedding), d)
	}
	s.records = append(s.records, r)
	return nil
}

// RemoveByText drops every record whose text equals text exactly and returns
// how many were removed. The relative order of the remaining records is kept.
func (s *Store) RemoveByText(text string) int {
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Text != text {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	// Clear the tail so dropped embeddings can be collected.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = NoteRecord{}
	}
	s.records = kept
	return removed
}

// Truncate drops records at positions >= n.
func (s *Store) Truncate(n int) {
	if n < 0 || n >= len(s.records) {
		return
	}
	for i := n; i < len(s.records); i++ {
		s.records[i] = NoteRecord{}
	}
	s.records = s.records[:n]
}

// Restore replaces the in-memory records, typically with a snapshot taken
// before a failed mutation.
func (s *Store) Restore(records []NoteRecord) {
	s.records = records
}

// Snapshot returns a shallow copy of the record list.
func (s *Store) Snapshot() []NoteRecord {
	out := make([]NoteRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Records returns the records in position order. The slice must not be
// modified by the caller.
func (s *Store) Records() []NoteRecord { return s.records }

// At returns the record at position i.
func (s *Store) At(i int) (NoteRecord, bool) {
	if i < 0 || i >= len(s.records) {
		return NoteRecord{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Dimensions returns the embedding size of the stored records, or 0 when
// the store is empty.
func (s *Store) Dimensions() int {
	if len(s.records) == 0 {
		return 0
	}
	return len(s.records[0].Embedding)
}

// Path returns the location of the backing storage.
func (s *Store) Path() string { return s.persister.Path() }

// Close releases the persister.
func (s *Store) Close() error { return s.persister.Close() }

func validate(records []NoteRecord) error {
	if len(records) == 0 {
		return nil
	}
	dims := len(records[0].Embedding)
	for i, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("%w: record %d has no embedding", ErrMalformed, i)
		}
		if len(r.Embedding) != dims {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d", ErrMalformed, i, len(r.Embedding), dims)
		}
	}
	return nil
}

// Backend names accepted by NewPersister.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// NewPersister returns the persister for the named backend. The codec name
// is one CodecByName accepts and only applies to the json backend.
func NewPersister(backend, codec, path string) (Persister, error) {
	switch backend {
	case "", BackendJSON:
		c, ok := CodecByName(codec)
		if !ok {
			return nil, fmt.Errorf("unknown store codec %q", codec)
		}
		return NewFilePersister(path, WithCodec(c)), nil
	case BackendSQLite:
		return NewSQLitePersister(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
