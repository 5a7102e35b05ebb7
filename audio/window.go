package audio

// Window retains the most recent chunks pushed into it, up to a fixed
// capacity. Pushing beyond capacity evicts oldest-first. The squelch
// processor uses one window both for its evaluation statistic and for
// pre-roll replay.
type Window struct {
	items []Chunk
	head  int
	size  int
}

// NewWindow creates a sliding window holding at most capacity chunks.
func NewWindow(capacity int) *Window {
	return &Window{
		items: make([]Chunk, capacity),
	}
}

// Push appends c, evicting the oldest chunk if the window is full.
func (w *Window) Push(c Chunk) {
	w.items[w.head] = c
	w.head = (w.head + 1) % len(w.items)
	if w.size < len(w.items) {
		w.size++
	}
}

// Len returns the number of chunks currently retained.
func (w *Window) Len() int {
	return w.size
}

// Items returns the retained chunks in insertion order, oldest first.
// Reading does not mutate the window.
func (w *Window) Items() []Chunk {
	out := make([]Chunk, w.size)
	start := (w.head - w.size + len(w.items)) % len(w.items)
	for i := 0; i < w.size; i++ {
		out[i] = w.items[(start+i)%len(w.items)]
	}
	return out
}

// Clear drops all retained chunks.
func (w *Window) Clear() {
	w.head = 0
	w.size = 0
}
