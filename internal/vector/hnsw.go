package vector

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

type hnswNode struct {
	id     int
	vector []float32
	// links[l] holds internal indices of neighbours on layer l.
	links [][]uint32
}

// HNSW is a hierarchical navigable small world graph.
type HNSW struct {
	dimensions int
	params     Params
	mmax0      int
	ml         float64
	distance   DistanceFunc
	rng        *rand.Rand

	nodes    []*hnswNode
	ids      map[int]uint32
	entry    uint32
	maxLevel int

	mu sync.RWMutex
}

// NewHNSW creates an empty HNSW index.
func NewHNSW(dimensions int, p Params) (*HNSW, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	p = p.withDefaults()
	dist, err := p.Metric.Func()
	if err != nil {
		return nil, err
	}
	return &HNSW{
		dimensions: dimensions,
		params:     p,
		mmax0:      2 * p.MaxConnections,
		ml:         1 / math.Log(float64(p.MaxConnections)),
		distance:   dist,
		rng:        rand.New(rand.NewSource(p.Seed)), // nolint gosec
		nodes:      make([]*hnswNode, 0, p.MaxElements),
		ids:        make(map[int]uint32, p.MaxElements),
	}, nil
}

// Type returns the index type identifier.
func (h *HNSW) Type() string { return string(IndexTypeHNSW) }

// Metric returns the distance metric the index was built with.
func (h *HNSW) Metric() Metric { return h.params.Metric }

// Dimensions returns the vector dimension.
func (h *HNSW) Dimensions() int { return h.dimensions }

// Len returns the number of entries.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func (h *HNSW) randomLevel() int {
	r := h.rng.Float64()
	for r == 0 {
		r = h.rng.Float64()
	}
	level := int(math.Floor(-math.Log(r) * h.ml))
	return min(level, h.params.MaxLayers-1)
}

// Insert adds vec under id. The vector is copied.
func (h *HNSW) Insert(vec []float32, id int) error {
	if len(vec) != h.dimensions {
		return &DimensionMismatchError{Expected: h.dimensions, Actual: len(vec)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.ids[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}

	level := h.randomLevel()
	node := &hnswNode{
		id:     id,
		vector: slices.Clone(vec),
		links:  make([][]uint32, level+1),
	}
	idx := uint32(len(h.nodes))
	h.nodes = append(h.nodes, node)
	h.ids[id] = idx

	if idx == 0 {
		h.entry = 0
		h.maxLevel = level
		return nil
	}

	ep := h.entry
	epDist := h.distance(node.vector, h.nodes[ep].vector)
	for l := h.maxLevel; l > level; l-- {
		ep, epDist = h.greedyClosest(node.vector, ep, epDist, l)
	}

	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(node.vector, ep, epDist, h.params.EfConstruction, l)
		neighbours := h.selectNeighbours(candidates, h.params.MaxConnections)
		node.links[l] = make([]uint32, len(neighbours))
		for i, c := range neighbours {
			node.links[l][i] = c.node
		}
		for _, c := range neighbours {
			h.link(c.node, idx, l)
		}
		ep, epDist = candidates[0].node, candidates[0].dist
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entry = idx
	}
	return nil
}

// Search returns up to k nearest entries ordered by ascending distance.
func (h *HNSW) Search(query []float32, k, ef int) ([]Neighbor, error) {
	if len(query) != h.dimensions {
		return nil, &DimensionMismatchError{Expected: h.dimensions, Actual: len(query)}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || len(h.nodes) == 0 {
		return nil, nil
	}
	ef = max(ef, k)

	ep := h.entry
	epDist := h.distance(query, h.nodes[ep].vector)
	for l := h.maxLevel; l > 0; l-- {
		ep, epDist = h.greedyClosest(query, ep, epDist, l)
	}
	candidates := h.searchLayer(query, ep, epDist, ef, 0)

	want := min(k, len(h.nodes))
	if len(candidates) < want {
		// Heuristic pruning can strand a node; an exhaustive scan keeps the
		// result size at min(k, Len()).
		candidates = h.bruteForce(query, want)
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Neighbor, len(candidates))
	for i, c := range candidates {
		out[i] = Neighbor{ID: h.nodes[c.node].id, Distance: c.dist}
	}
	return out, nil
}

// greedyClosest walks layer level from ep towards q until no neighbour is closer.
func (h *HNSW) greedyClosest(q []float32, ep uint32, epDist float32, level int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		for _, nb := range h.nodes[ep].links[level] {
			if d := h.distance(q, h.nodes[nb].vector); d < epDist {
				ep, epDist, changed = nb, d, true
			}
		}
	}
	return ep, epDist
}

// searchLayer returns up to ef closest nodes on one layer, ordered by ascending distance.
func (h *HNSW) searchLayer(q []float32, ep uint32, epDist float32, ef, level int) []candidate {
	visited := bitset.New(uint(len(h.nodes)))
	visited.Set(uint(ep))

	candidates := &candidateQueue{}
	heap.Push(candidates, candidate{node: ep, dist: epDist})
	top := &candidateQueue{maxFirst: true}
	heap.Push(top, candidate{node: ep, dist: epDist})

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candidate)
		if c.dist > top.Top().dist {
			break
		}
		links := h.nodes[c.node].links
		if level >= len(links) {
			continue
		}
		for _, nb := range links[level] {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))

			d := h.distance(q, h.nodes[nb].vector)
			if top.Len() < ef || d < top.Top().dist {
				heap.Push(candidates, candidate{node: nb, dist: d})
				heap.Push(top, candidate{node: nb, dist: d})
				if top.Len() > ef {
					heap.Pop(top)
				}
			}
		}
	}

	out := make([]candidate, top.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(top).(candidate)
	}
	return out
}

// selectNeighbours picks up to m candidates from an ascending list, preferring
// candidates closer to the base than to any already selected one. Pruned
// candidates back-fill the selection when it would otherwise stay short.
func (h *HNSW) selectNeighbours(candidates []candidate, m int) []candidate {
	if len(candidates) <= m {
		return candidates
	}
	selected := make([]candidate, 0, m)
	var pruned []candidate
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if h.distance(h.nodes[s.node].vector, h.nodes[c.node].vector) < c.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}
	for i := 0; len(selected) < m && i < len(pruned); i++ {
		selected = append(selected, pruned[i])
	}
	return selected
}

// link adds a directed edge from -> to on level and shrinks from's list if it overflows.
func (h *HNSW) link(from, to uint32, level int) {
	node := h.nodes[from]
	node.links[level] = append(node.links[level], to)

	limit := h.params.MaxConnections
	if level == 0 {
		limit = h.mmax0
	}
	if len(node.links[level]) <= limit {
		return
	}

	candidates := make([]candidate, len(node.links[level]))
	for i, nb := range node.links[level] {
		candidates[i] = candidate{node: nb, dist: h.distance(node.vector, h.nodes[nb].vector)}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	kept := h.selectNeighbours(candidates, limit)
	links := make([]uint32, len(kept))
	for i, c := range kept {
		links[i] = c.node
	}
	node.links[level] = links
}

func (h *HNSW) bruteForce(q []float32, k int) []candidate {
	all := make([]candidate, len(h.nodes))
	for i, n := range h.nodes {
		all[i] = candidate{node: uint32(i), dist: h.distance(q, n.vector)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > k {
		all = all[:k]
	}
	return all
}
