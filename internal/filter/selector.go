package filter

import "container/heap"

// candidate is one record competing for a place in its group.
type candidate struct {
	id       string
	seq      int
	priority float64
}

// candidateHeap is a min-heap whose root is the weakest kept candidate:
// lowest priority first, and among equal priorities the record seen later in
// the input stream. Evicting the root therefore always removes the record
// that loses the tie-break.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq > h[j].seq
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Selector keeps the top-quota records of one group by priority, with ties
// won by earlier first-seen order. Records beyond the quota are dropped for
// exceeding the subsampling quota; force-included records never enter a
// selector.
type Selector struct {
	quota   int
	heap    candidateHeap
	dropped int
}

// NewSelector creates a selector with the given quota.
func NewSelector(quota int) *Selector {
	return &Selector{quota: quota}
}

// Add offers a record to the group. If the group is full, the weakest of the
// current members and the offered record is dropped.
func (s *Selector) Add(id string, seq int, priority float64) {
	if s.quota <= 0 {
		s.dropped++
		return
	}

	c := candidate{id: id, seq: seq, priority: priority}
	if len(s.heap) < s.quota {
		heap.Push(&s.heap, c)
		return
	}

	// Full: the new candidate must beat the current weakest member.
	if beats(c, s.heap[0]) {
		s.heap[0] = c
		heap.Fix(&s.heap, 0)
	}
	s.dropped++
}

// beats reports whether a outranks b: higher priority, or equal priority and
// earlier first-seen order.
func beats(a, b candidate) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

// Kept returns the selected members as (id, seq) pairs, in no particular
// order; callers re-order by sequence.
func (s *Selector) Kept() []candidate {
	return s.heap
}

// Dropped returns how many offered records were rejected.
func (s *Selector) Dropped() int {
	return s.dropped
}
