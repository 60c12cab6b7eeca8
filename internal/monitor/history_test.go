package monitor_test

import (
	"testing"

	"codeberg.org/mutker/sysmond/internal/monitor"
	"github.com/stretchr/testify/assert"
)

func TestHistoryAppendWithinCapacity(t *testing.T) {
	h := monitor.NewHistory[int](3)

	h.Append(1)
	h.Append(2)

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []int{1, 2}, h.Snapshot(), "Expected items oldest first")
}

func TestHistoryEvictsOldestOnOverflow(t *testing.T) {
	h := monitor.NewHistory[int](3)

	for i := 1; i <= 5; i++ {
		h.Append(i)
	}

	assert.Equal(t, 3, h.Len(), "Expected length capped at capacity")
	assert.Equal(t, []int{3, 4, 5}, h.Snapshot(), "Expected the two oldest items evicted")
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := monitor.NewHistory[int](3)
	h.Append(1)

	snap := h.Snapshot()
	snap[0] = 99

	assert.Equal(t, []int{1}, h.Snapshot(), "Expected mutation of the copy to leave the buffer alone")
}

func TestHistoryShrinkDropsOldest(t *testing.T) {
	h := monitor.NewHistory[int](5)
	for i := 1; i <= 5; i++ {
		h.Append(i)
	}

	h.SetCapacity(2)

	assert.Equal(t, 2, h.Capacity())
	assert.Equal(t, []int{4, 5}, h.Snapshot(), "Expected shrink to keep the newest items")
}

func TestHistoryGrowKeepsItems(t *testing.T) {
	h := monitor.NewHistory[int](2)
	h.Append(1)
	h.Append(2)

	h.SetCapacity(4)
	h.Append(3)

	assert.Equal(t, []int{1, 2, 3}, h.Snapshot())
}
