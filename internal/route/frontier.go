package route

// frontier is a binary min-heap of open search nodes keyed by estimated total
// cost f, with insertion order breaking ties so that equal-f nodes are
// finalised in the order they were first discovered. Stale duplicates (from
// lazy decrease-key) are filtered by the caller against the closed set.
type frontier []frontierNode

type frontierNode struct {
	id  int     // cell id, y*width + x
	f   float64 // g + heuristic
	seq int     // monotone insertion counter for tie-breaking
}

func (h frontier) Len() int { return len(h) }

func (h frontier) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h frontier) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontier) Push(x any) {
	*h = append(*h, x.(frontierNode))
}

func (h *frontier) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	*h = old[:n-1]
	return node
}
