// internal/heap/heap.go

package heap

// Node is anything that can sit in a MinHeap.
type Node interface {
	SortIndex() int64
	ID() uint64
}

// MinHeap is an array-backed binary heap ordered by (SortIndex, ID).
// It does not support removing arbitrary elements; callers invalidate
// entries lazily and drop them when they surface at the root.
type MinHeap[T Node] struct {
	nodes []T
}

// New creates an empty heap with room for size nodes.
func New[T Node](size int) *MinHeap[T] {
	return &MinHeap[T]{nodes: make([]T, 0, size)}
}

// Len returns the number of held nodes.
func (h *MinHeap[T]) Len() int { return len(h.nodes) }

// Peek returns the minimum node without removing it.
func (h *MinHeap[T]) Peek() (T, bool) {
	if len(h.nodes) == 0 {
		var zero T
		return zero, false
	}
	return h.nodes[0], true
}

// Push appends node as a leaf and sifts it up.
func (h *MinHeap[T]) Push(node T) {
	h.nodes = append(h.nodes, node)
	h.siftUp(node, len(h.nodes)-1)
}

// Pop removes and returns the minimum node. The last leaf takes the
// root's place and is sifted down.
func (h *MinHeap[T]) Pop() (T, bool) {
	var zero T
	n := len(h.nodes)
	if n == 0 {
		return zero, false
	}

	first := h.nodes[0]
	last := h.nodes[n-1]
	h.nodes[n-1] = zero // release the reference
	h.nodes = h.nodes[:n-1]
	if n > 1 {
		h.nodes[0] = last
		h.siftDown(last, 0)
	}
	return first, true
}

func (h *MinHeap[T]) siftUp(node T, i int) {
	for i > 0 {
		parentIdx := (i - 1) >> 1
		parent := h.nodes[parentIdx]
		if compare(parent, node) <= 0 {
			return
		}
		h.nodes[parentIdx] = node
		h.nodes[i] = parent
		i = parentIdx
	}
}

func (h *MinHeap[T]) siftDown(node T, i int) {
	length := len(h.nodes)
	half := length >> 1
	for i < half {
		leftIdx := 2*i + 1
		rightIdx := leftIdx + 1
		left := h.nodes[leftIdx]

		// pick the smaller child, if any child beats node
		if compare(left, node) < 0 {
			if rightIdx < length && compare(h.nodes[rightIdx], left) < 0 {
				h.nodes[i] = h.nodes[rightIdx]
				h.nodes[rightIdx] = node
				i = rightIdx
			} else {
				h.nodes[i] = left
				h.nodes[leftIdx] = node
				i = leftIdx
			}
		} else if rightIdx < length && compare(h.nodes[rightIdx], node) < 0 {
			h.nodes[i] = h.nodes[rightIdx]
			h.nodes[rightIdx] = node
			i = rightIdx
		} else {
			return
		}
	}
}

// compare orders by sort index and falls back to ID, so no two distinct
// nodes ever compare equal.
func compare(a, b Node) int {
	switch {
	case a.SortIndex() < b.SortIndex():
		return -1
	case a.SortIndex() > b.SortIndex():
		return 1
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}
