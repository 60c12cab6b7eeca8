package monitor

const (
	DefaultHistorySize = 120 // 2 minutes at 1Hz
	minHistorySize     = 10
	maxHistorySize     = 1000
)

// History is a fixed-capacity, insertion-ordered snapshot buffer that evicts
// the oldest entry on overflow. It is not safe for concurrent use on its
// own; the owning monitor's lock guards it.
type History[T any] struct {
	items    []T
	capacity int
}

func NewHistory[T any](capacity int) *History[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &History[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a snapshot, evicting the oldest when full
func (h *History[T]) Append(item T) {
	h.items = append(h.items, item)
	if len(h.items) > h.capacity {
		h.items = h.items[1:]
	}
}

// Snapshot returns a copy of the buffered items, oldest first
func (h *History[T]) Snapshot() []T {
	out := make([]T, len(h.items))
	copy(out, h.items)

	return out
}

func (h *History[T]) Len() int {
	return len(h.items)
}

func (h *History[T]) Capacity() int {
	return h.capacity
}

// SetCapacity resizes the buffer, dropping the oldest entries on shrink
func (h *History[T]) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	h.capacity = capacity
	if len(h.items) > capacity {
		h.items = h.items[len(h.items)-capacity:]
	}
}

// clampHistorySize bounds a requested history size to [10,1000]
func clampHistorySize(size int) int {
	if size < minHistorySize {
		return minHistorySize
	}
	if size > maxHistorySize {
		return maxHistorySize
	}

	return size
}
