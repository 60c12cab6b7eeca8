package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/sampler"
	"codeberg.org/mutker/sysmond/internal/source"
)

// MemoryMonitor samples instantaneous memory counters. Unlike CPU there is
// no delta to compute; the counters are percentages-in-waiting.
type MemoryMonitor struct {
	cfg     Config
	src     source.Reader
	log     logger.Logger
	sampler *sampler.Sampler

	collected source.MemoryCounters
	pending   MemorySnapshot

	dataMu  sync.RWMutex
	current MemorySnapshot
	history *History[MemorySnapshot]

	subscribers []func(MemorySnapshot)
}

func NewMemoryMonitor(cfg Config, src source.Reader, log logger.Logger, notify sampler.Notifications) *MemoryMonitor {
	m := &MemoryMonitor{
		cfg:     cfg,
		src:     src,
		log:     log,
		history: NewHistory[MemorySnapshot](cfg.HistorySize),
	}

	m.sampler = sampler.New("memory", m, cfg.Interval, log, notify)

	return m
}

// Lifecycle, delegated to the sampler.

func (m *MemoryMonitor) Start()                            { m.sampler.Start() }
func (m *MemoryMonitor) Stop()                             { m.sampler.Stop() }
func (m *MemoryMonitor) Pause()                            { m.sampler.Pause() }
func (m *MemoryMonitor) Resume()                           { m.sampler.Resume() }
func (m *MemoryMonitor) SetInterval(interval time.Duration) { m.sampler.SetInterval(interval) }
func (m *MemoryMonitor) IsRunning() bool                   { return m.sampler.IsRunning() }
func (m *MemoryMonitor) IsPaused() bool                    { return m.sampler.IsPaused() }
func (m *MemoryMonitor) LastUpdate() time.Time             { return m.sampler.LastUpdate() }
func (m *MemoryMonitor) IsStale(maxAge time.Duration) bool { return m.sampler.IsStale(maxAge) }

// Subscribe registers a publish consumer. Register before Start.
func (m *MemoryMonitor) Subscribe(fn func(MemorySnapshot)) {
	m.subscribers = append(m.subscribers, fn)
}

// CurrentSnapshot returns a read-copy of the latest published snapshot
func (m *MemoryMonitor) CurrentSnapshot() MemorySnapshot {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()

	return m.current
}

// History returns a copy of the snapshot ring, oldest first
func (m *MemoryMonitor) History() []MemorySnapshot {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()

	return m.history.Snapshot()
}

// SetHistorySize resizes the ring, clamped to [10,1000]
func (m *MemoryMonitor) SetHistorySize(size int) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	m.history.SetCapacity(clampHistorySize(size))
}

// Collect reads the memory counters; an unreadable tick reuses the previous
// counters so the snapshot degrades to stale rather than zero.
func (m *MemoryMonitor) Collect() error {
	counters, err := m.src.MemoryCounters()
	if err != nil {
		m.log.Debug().Err(err).Msg("Memory counters unreadable this tick")
		return nil
	}

	m.collected = counters

	return nil
}

// Derive computes usage percentages and classifies the snapshot
func (m *MemoryMonitor) Derive() error {
	c := m.collected

	used := uint64(0)
	if c.Total > c.Available {
		used = c.Total - c.Available
	}

	swapUsed := uint64(0)
	if c.SwapTotal > c.SwapFree {
		swapUsed = c.SwapTotal - c.SwapFree
	}

	m.pending = MemorySnapshot{
		Total:     c.Total,
		Free:      c.Free,
		Available: c.Available,
		Buffers:   c.Buffers,
		Cached:    c.Cached,
		Used:      used,
		SwapTotal: c.SwapTotal,
		SwapUsed:  swapUsed,
	}

	if c.Total > 0 {
		m.pending.UsagePercent = float64(used) / float64(c.Total) * 100.0
	}
	if c.SwapTotal > 0 {
		m.pending.SwapPercent = float64(swapUsed) / float64(c.SwapTotal) * 100.0
	}

	m.pending.Status = m.determineStatus()
	m.pending.Timestamp = time.Now()

	return nil
}

// Validate clamps derived percentages into [0,100]
func (m *MemoryMonitor) Validate() error {
	m.pending.UsagePercent = clampPercent(m.pending.UsagePercent)
	m.pending.SwapPercent = clampPercent(m.pending.SwapPercent)

	return nil
}

// Publish makes the pending snapshot current and notifies subscribers
func (m *MemoryMonitor) Publish() {
	m.dataMu.Lock()
	m.current = m.pending
	m.history.Append(m.pending)
	published := m.pending
	m.dataMu.Unlock()

	for _, fn := range m.subscribers {
		fn(published)
	}
}

func (m *MemoryMonitor) determineStatus() Status {
	if m.pending.UsagePercent >= m.cfg.MemoryCritical {
		return StatusCritical
	}
	if m.pending.UsagePercent >= m.cfg.MemoryWarning {
		return StatusWarning
	}

	// A system can sit below the percentage thresholds and still be about
	// to hit the OOM killer on small machines.
	if m.pending.Total > 0 && m.pending.Available < m.cfg.LowMemoryBytes {
		return StatusWarning
	}

	// Heavy swap use with RAM nominally fine still degrades everything.
	if m.cfg.SwapWarning > 0 && m.pending.SwapTotal > 0 && m.pending.SwapPercent >= m.cfg.SwapWarning {
		return StatusWarning
	}

	return StatusNormal
}
