// Package vector provides approximate and exact nearest-neighbor indexes over
// fixed-dimension float32 vectors.
package vector

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an id is inserted twice into the same index.
var ErrDuplicateID = errors.New("duplicate id")

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Index is an insert-only nearest-neighbor index. Entries are never removed;
// callers rebuild a fresh index instead.
type Index interface {
	// Insert adds vec under id. id must be unique within the index.
	Insert(vec []float32, id int) error
	// Search returns up to k entries ordered by ascending distance.
	// ef is the candidate list breadth; approximate indexes raise it to at least k.
	Search(query []float32, k, ef int) ([]Neighbor, error)
	Len() int
	Dimensions() int
	Metric() Metric
	Type() string
}

// Neighbor is a single search hit.
type Neighbor struct {
	ID       int
	Distance float32
}

// Params are the construction parameters of an index.
type Params struct {
	// MaxConnections is the number of links kept per node per layer (M).
	// Layer 0 keeps twice as many.
	MaxConnections int
	// MaxElements is a capacity hint; the index grows past it.
	MaxElements int
	// MaxLayers caps the height of the layer hierarchy.
	MaxLayers int
	// EfConstruction is the candidate list breadth used while linking new nodes.
	EfConstruction int
	Metric         Metric
	// Seed drives level assignment so builds are reproducible.
	Seed int64
}

// Tuning constants for note indexes.
const (
	DefaultMaxConnections = 16
	DefaultMaxLayers      = 16
	DefaultEfConstruction = 200
	MinMaxElements        = 200
)

func (p Params) withDefaults() Params {
	if p.MaxConnections <= 0 {
		p.MaxConnections = DefaultMaxConnections
	}
	if p.MaxConnections == 1 {
		// ml = 1/ln(M) is undefined for M = 1.
		p.MaxConnections = 2
	}
	if p.MaxElements <= 0 {
		p.MaxElements = MinMaxElements
	}
	if p.MaxLayers <= 0 {
		p.MaxLayers = DefaultMaxLayers
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = DefaultEfConstruction
	}
	if p.Metric == "" {
		p.Metric = MetricCosine
	}
	return p
}
