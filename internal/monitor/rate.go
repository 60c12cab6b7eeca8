package monitor

import (
	"math"

	"codeberg.org/mutker/sysmond/internal/source"
)

// UsagePercent converts two consecutive cumulative counter reads into a
// usage percentage in [0,100]. A non-positive total delta (first sample,
// counter reset, wraparound) is defined as 0.0; the caller recovers on the
// next tick once deltas are positive again. Transient skew between the idle
// and total reads is absorbed by the clamp.
func UsagePercent(currentTotal, currentIdle, previousTotal, previousIdle uint64) float64 {
	if currentTotal <= previousTotal {
		return 0.0
	}

	totalDelta := float64(currentTotal - previousTotal)
	idleDelta := float64(int64(currentIdle) - int64(previousIdle))

	usage := (1.0 - idleDelta/totalDelta) * 100.0

	return clampPercent(usage)
}

// RateComputer owns the previous counter snapshots for one CPU monitor and
// turns each new read into aggregate and per-core usage percentages. The
// core count is fixed at construction; a core whose counters were not
// readable this tick retains its previous usage value.
type RateComputer struct {
	prev      source.CounterSnapshot
	prevCores []source.CounterSnapshot
	usages    []float64
	primed    bool
}

func NewRateComputer(coreCount int) *RateComputer {
	return &RateComputer{
		prevCores: make([]source.CounterSnapshot, coreCount),
		usages:    make([]float64, coreCount),
	}
}

// Update consumes the counters collected this tick and returns the aggregate
// usage plus a per-core usage slice owned by the computer (callers copy it
// into snapshots). The first update only primes the previous state and
// reports zero usage.
func (rc *RateComputer) Update(aggregate source.CounterSnapshot, cores []source.CounterSnapshot) (float64, []float64) {
	if !rc.primed {
		rc.prev = aggregate
		rc.storeCores(cores)
		rc.primed = true

		return 0.0, rc.usages
	}

	total := UsagePercent(aggregate.Total(), aggregate.Idle, rc.prev.Total(), rc.prev.Idle)

	for i := range rc.usages {
		if i >= len(cores) {
			// Counters for this core were unavailable; keep the last value.
			continue
		}
		rc.usages[i] = UsagePercent(cores[i].Total(), cores[i].Idle, rc.prevCores[i].Total(), rc.prevCores[i].Idle)
	}

	rc.prev = aggregate
	rc.storeCores(cores)

	return total, rc.usages
}

func (rc *RateComputer) storeCores(cores []source.CounterSnapshot) {
	for i := range rc.prevCores {
		if i < len(cores) {
			rc.prevCores[i] = cores[i]
		}
	}
}

func clampPercent(value float64) float64 {
	if math.IsNaN(value) {
		return 0.0
	}
	if value < 0.0 {
		return 0.0
	}
	if value > 100.0 {
		return 100.0
	}

	return value
}
