package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/sysmond/internal/errors"
	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/sampler"
	"codeberg.org/mutker/sysmond/internal/source"
)

// CPUMonitor samples cumulative CPU counters, temperature and frequency from
// its source and derives usage percentages via a RateComputer. It implements
// sampler.Strategy; the sampler's tick lock keeps the four phases atomic,
// while dataMu guards the published snapshot and history against readers.
type CPUMonitor struct {
	cfg     Config
	src     source.Reader
	log     logger.Logger
	sampler *sampler.Sampler

	rate *RateComputer

	// Staged between phases of one tick; only the tick goroutine touches these.
	collectedAgg   source.CounterSnapshot
	collectedCores []source.CounterSnapshot
	pending        CPUSnapshot

	dataMu  sync.RWMutex
	current CPUSnapshot
	history *History[CPUSnapshot]

	subscribers []func(CPUSnapshot)
}

// NewCPUMonitor determines the core count and CPU model up front; failing to
// determine the core count is the one fatal construction error.
func NewCPUMonitor(cfg Config, src source.Reader, log logger.Logger, notify sampler.Notifications) (*CPUMonitor, error) {
	errFactory := errors.New()

	coreCount, err := src.CoreCount()
	if err != nil {
		return nil, errFactory.Wrap(ErrCoreCountFailed, err)
	}

	model, err := src.Model()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read CPU model")
		model = ""
	}

	m := &CPUMonitor{
		cfg:     cfg,
		src:     src,
		log:     log,
		rate:    NewRateComputer(coreCount),
		history: NewHistory[CPUSnapshot](cfg.HistorySize),
	}

	m.current = CPUSnapshot{
		Cores:     make([]CoreSnapshot, coreCount),
		CoreCount: coreCount,
		Model:     model,
	}
	for i := range m.current.Cores {
		m.current.Cores[i].ID = i
	}

	m.sampler = sampler.New("cpu", m, cfg.Interval, log, notify)

	log.Debug().Int("cores", coreCount).Str("model", model).Msg("CPU monitor initialized")

	return m, nil
}

// Lifecycle, delegated to the sampler.

func (m *CPUMonitor) Start()                            { m.sampler.Start() }
func (m *CPUMonitor) Stop()                             { m.sampler.Stop() }
func (m *CPUMonitor) Pause()                            { m.sampler.Pause() }
func (m *CPUMonitor) Resume()                           { m.sampler.Resume() }
func (m *CPUMonitor) SetInterval(interval time.Duration) { m.sampler.SetInterval(interval) }
func (m *CPUMonitor) IsRunning() bool                   { return m.sampler.IsRunning() }
func (m *CPUMonitor) IsPaused() bool                    { return m.sampler.IsPaused() }
func (m *CPUMonitor) LastUpdate() time.Time             { return m.sampler.LastUpdate() }
func (m *CPUMonitor) IsStale(maxAge time.Duration) bool { return m.sampler.IsStale(maxAge) }

// Subscribe registers a publish consumer. Register before Start; the
// callback runs on the sampler goroutine with no monitor lock held.
func (m *CPUMonitor) Subscribe(fn func(CPUSnapshot)) {
	m.subscribers = append(m.subscribers, fn)
}

// CurrentSnapshot returns a read-copy of the latest published snapshot
func (m *CPUMonitor) CurrentSnapshot() CPUSnapshot {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()

	return m.current.Clone()
}

// History returns a copy of the snapshot ring, oldest first
func (m *CPUMonitor) History() []CPUSnapshot {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()

	out := m.history.Snapshot()
	for i := range out {
		out[i] = out[i].Clone()
	}

	return out
}

// SetHistorySize resizes the ring, clamped to [10,1000], truncating the
// oldest entries on shrink.
func (m *CPUMonitor) SetHistorySize(size int) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	m.history.SetCapacity(clampHistorySize(size))
}

// Collect reads the raw counters. Every read fails softly: unreadable CPU
// counters reuse the previous read (yielding a zero delta), a failed sensor
// read leaves the corresponding availability flag off.
func (m *CPUMonitor) Collect() error {
	agg, cores, err := m.src.CPUCounters()
	if err != nil {
		m.log.Debug().Err(err).Msg("CPU counters unreadable this tick")
		// Stale aggregate gives a zero delta; dropping the core slice lets
		// each core retain its previous usage.
		m.collectedCores = nil
	} else {
		m.collectedAgg = agg
		m.collectedCores = cores
	}

	m.pending = CPUSnapshot{
		CoreCount: m.rateCoreCount(),
		Model:     m.current.Model,
	}

	if temp, err := m.src.Temperature(); err == nil {
		m.pending.Temperature = temp
		m.pending.TemperatureOK = true
	}

	if freq, err := m.src.Frequency(); err == nil {
		m.pending.FrequencyMHz = freq
		m.pending.FrequencyOK = true
	}

	return nil
}

// Derive computes usage rates and classifies the snapshot
func (m *CPUMonitor) Derive() error {
	total, perCore := m.rate.Update(m.collectedAgg, m.collectedCores)

	m.pending.TotalUsage = total
	m.pending.Cores = make([]CoreSnapshot, len(perCore))
	for i := range perCore {
		m.pending.Cores[i] = CoreSnapshot{ID: i, Usage: perCore[i]}
	}

	m.pending.Status = m.determineStatus()
	m.pending.Timestamp = time.Now()

	return nil
}

// Validate clamps out-of-range values to safe defaults; implausible
// temperatures become unavailable rather than faults.
func (m *CPUMonitor) Validate() error {
	m.pending.TotalUsage = clampPercent(m.pending.TotalUsage)
	for i := range m.pending.Cores {
		m.pending.Cores[i].Usage = clampPercent(m.pending.Cores[i].Usage)
	}

	if m.pending.TemperatureOK &&
		(m.pending.Temperature < minPlausibleTemperature || m.pending.Temperature > maxPlausibleTemperature) {
		m.log.Warn().Float64("temperature", m.pending.Temperature).Msg("Implausible temperature reading discarded")
		m.pending.Temperature = 0.0
		m.pending.TemperatureOK = false
		m.pending.Status = m.determineStatus()
	}

	if m.pending.FrequencyOK && m.pending.FrequencyMHz < 0 {
		m.pending.FrequencyMHz = 0.0
		m.pending.FrequencyOK = false
	}

	return nil
}

// Publish makes the pending snapshot current, appends it to the history and
// notifies subscribers with an immutable copy.
func (m *CPUMonitor) Publish() {
	m.dataMu.Lock()
	m.current = m.pending
	m.history.Append(m.pending)
	published := m.pending.Clone()
	m.dataMu.Unlock()

	for _, fn := range m.subscribers {
		fn(published)
	}
}

// Temperature has priority over usage: a hot CPU is the more urgent signal
// even when usage alone would classify higher.
func (m *CPUMonitor) determineStatus() Status {
	if m.pending.TemperatureOK {
		if m.pending.Temperature >= m.cfg.TempCritical {
			return StatusCritical
		}
		if m.pending.Temperature >= m.cfg.TempWarning {
			return StatusWarning
		}
	}

	if m.pending.TotalUsage >= m.cfg.CPUCritical {
		return StatusCritical
	}
	if m.pending.TotalUsage >= m.cfg.CPUWarning {
		return StatusWarning
	}

	return StatusNormal
}

func (m *CPUMonitor) rateCoreCount() int {
	return len(m.rate.usages)
}
