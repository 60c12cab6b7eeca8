package monitor

import "time"

// Status classifies a snapshot against the configured thresholds
type Status int

const (
	StatusUnknown Status = iota
	StatusNormal
	StatusWarning
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CoreSnapshot is the per-core slice of a CPU snapshot
type CoreSnapshot struct {
	ID    int
	Usage float64
}

// CPUSnapshot is an immutable point-in-time CPU measurement. Consumers
// always receive copies; the owning monitor mutates its own instance only.
type CPUSnapshot struct {
	TotalUsage float64
	Cores      []CoreSnapshot
	CoreCount  int
	Model      string

	// Temperature and frequency carry an explicit availability flag so a
	// failed sensor read is distinguishable from a genuine zero reading.
	Temperature   float64
	TemperatureOK bool
	FrequencyMHz  float64
	FrequencyOK   bool

	Status    Status
	Timestamp time.Time
}

// IsValid reports whether the snapshot has been produced by at least one tick
func (s CPUSnapshot) IsValid() bool {
	return s.Status != StatusUnknown && !s.Timestamp.IsZero()
}

// Clone returns a deep copy, detaching the per-core slice
func (s CPUSnapshot) Clone() CPUSnapshot {
	out := s
	out.Cores = make([]CoreSnapshot, len(s.Cores))
	copy(out.Cores, s.Cores)

	return out
}

// MemorySnapshot is an immutable point-in-time memory measurement,
// byte counts plus derived percentages.
type MemorySnapshot struct {
	Total     uint64
	Free      uint64
	Available uint64
	Buffers   uint64
	Cached    uint64
	Used      uint64
	SwapTotal uint64
	SwapUsed  uint64

	UsagePercent float64
	SwapPercent  float64

	Status    Status
	Timestamp time.Time
}

// IsValid reports whether the snapshot has been produced by at least one tick
func (s MemorySnapshot) IsValid() bool {
	return s.Status != StatusUnknown && !s.Timestamp.IsZero()
}

// Pressure returns the memory actually pinned by workloads: used minus
// reclaimable buffers and page cache. Can be negative right after a cache
// flush, hence the signed return.
func (s MemorySnapshot) Pressure() int64 {
	return int64(s.Used) - int64(s.Buffers) - int64(s.Cached)
}

// AvailableRatio returns available memory as a percentage of total
func (s MemorySnapshot) AvailableRatio() float64 {
	if s.Total == 0 {
		return 0
	}

	return float64(s.Available) / float64(s.Total) * 100
}

// Swapping reports whether any swap is in use
func (s MemorySnapshot) Swapping() bool {
	return s.SwapUsed > 0
}
