package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeHNSW is the approximate graph index used for notes.
	IndexTypeHNSW IndexType = "hnsw"
	// IndexTypeFlat is exact brute-force search. Good for small collections and recall checks.
	IndexTypeFlat IndexType = "flat"
)

// NewIndex creates an empty index of the specified type.
// Supported types: "hnsw" (default), "flat".
func NewIndex(indexType string, dimensions int, p Params) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeHNSW, "":
		return NewHNSW(dimensions, p)
	case IndexTypeFlat:
		return NewFlatIndex(dimensions, p.Metric)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: hnsw, flat)", indexType)
	}
}
