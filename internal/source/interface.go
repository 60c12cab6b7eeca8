package source

import "time"

// CounterSnapshot is one point-in-time read of the kernel's cumulative CPU
// tick counters. Fields are monotonically non-decreasing within a boot epoch;
// a field smaller than a previous read means the counters wrapped or reset.
type CounterSnapshot struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64

	Timestamp time.Time
}

// Total returns the sum of all counter fields
func (s CounterSnapshot) Total() uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.IOWait + s.IRQ + s.SoftIRQ + s.Steal
}

// Active returns the time spent doing work, excluding idle and iowait
func (s CounterSnapshot) Active() uint64 {
	return s.Total() - s.Idle - s.IOWait
}

// MemoryCounters is one point-in-time read of the kernel memory counters,
// all values in bytes. Unlike CPU counters these are already instantaneous.
type MemoryCounters struct {
	Total     uint64
	Free      uint64
	Available uint64
	Buffers   uint64
	Cached    uint64
	SwapTotal uint64
	SwapFree  uint64
}

// Reader exposes point-in-time counter reads. Implementations are pure
// functions of current system state and hold no state of their own.
// Every read may fail softly; callers substitute previous values or an
// unavailable sentinel rather than aborting.
type Reader interface {
	// CPUCounters returns the aggregate counter snapshot and one snapshot
	// per core, in core order.
	CPUCounters() (CounterSnapshot, []CounterSnapshot, error)

	// MemoryCounters returns the current memory counters in bytes.
	MemoryCounters() (MemoryCounters, error)

	// Temperature returns the CPU package temperature in °C.
	Temperature() (float64, error)

	// Frequency returns the current CPU frequency in MHz.
	Frequency() (float64, error)

	// CoreCount returns the number of logical cores.
	CoreCount() (int, error)

	// Model returns the CPU model name.
	Model() (string, error)
}
