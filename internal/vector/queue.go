package vector

import "container/heap"

var _ heap.Interface = (*candidateQueue)(nil)

// candidate is a graph node (by internal index) and its distance to the query.
type candidate struct {
	node uint32
	dist float32
}

// candidateQueue is a binary heap of candidates. With maxFirst set the
// farthest candidate is on top, otherwise the closest.
type candidateQueue struct {
	maxFirst bool
	items    []candidate
}

func (q *candidateQueue) Len() int { return len(q.items) }

func (q *candidateQueue) Less(i, j int) bool {
	if q.maxFirst {
		return q.items[i].dist > q.items[j].dist
	}
	return q.items[i].dist < q.items[j].dist
}

func (q *candidateQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *candidateQueue) Push(x any) { q.items = append(q.items, x.(candidate)) }

func (q *candidateQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

// Top returns the head of the heap without removing it. The queue must be non-empty.
func (q *candidateQueue) Top() candidate { return q.items[0] }
