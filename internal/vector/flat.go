package vector

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// FlatIndex is an exact index using brute-force distance computation.
// Suitable for tests, recall baselines and very small note collections.
type FlatIndex struct {
	dimensions int
	metric     Metric
	distance   DistanceFunc
	ids        []int
	vectors    [][]float32
	seen       map[int]struct{}
	mu         sync.RWMutex
}

// NewFlatIndex creates an exact index with the given dimension and metric.
func NewFlatIndex(dimensions int, metric Metric) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if metric == "" {
		metric = MetricCosine
	}
	dist, err := metric.Func()
	if err != nil {
		return nil, err
	}
	return &FlatIndex{
		dimensions: dimensions,
		metric:     metric,
		distance:   dist,
		ids:        make([]int, 0),
		vectors:    make([][]float32, 0),
		seen:       make(map[int]struct{}),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Metric returns the distance metric.
func (f *FlatIndex) Metric() Metric { return f.metric }

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int { return f.dimensions }

// Insert appends vec under id.
func (f *FlatIndex) Insert(vec []float32, id int) error {
	if len(vec) != f.dimensions {
		return &DimensionMismatchError{Expected: f.dimensions, Actual: len(vec)}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	f.seen[id] = struct{}{}
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, slices.Clone(vec))
	return nil
}

// Search returns the exact top-k entries by ascending distance. ef is ignored.
func (f *FlatIndex) Search(query []float32, k, _ int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, &DimensionMismatchError{Expected: f.dimensions, Actual: len(query)}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	scores := make([]Neighbor, len(f.ids))
	for i, vec := range f.vectors {
		scores[i] = Neighbor{ID: f.ids[i], Distance: f.distance(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Distance < scores[j].Distance })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Len returns the number of vectors in the index.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}
