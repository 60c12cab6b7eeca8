package alert

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/monitor"
)

// Notifications are optional consumer callbacks, invoked outside the engine
// lock. OnCritical fires in addition to OnAlert for Critical and Emergency
// alerts, for consumers that only care about urgent events.
type Notifications struct {
	OnAlert        func(Alert)
	OnCritical     func(Alert)
	OnCountChanged func(total, unacknowledged int)
}

// Engine classifies incoming snapshots against thresholds and maintains the
// bounded alert log. One state machine per (source, severity) pair gives
// edge-triggered firing with cooldown-based re-firing on sustained
// conditions, so per-second sampling cannot produce an alert storm.
type Engine struct {
	cfg    Config
	log    logger.Logger
	notify Notifications

	mu         sync.Mutex
	alerts     []Alert
	states     map[stateKey]*state
	nextID     int
	maxHistory int

	cleanupTicker *time.Ticker
	stopCh        chan struct{}
	doneCh        chan struct{}
	closeOnce     sync.Once
}

// queued collects notifications emitted under the lock so they can be
// delivered after it is released.
type queued struct {
	alerts       []Alert
	countChanged bool
}

func NewEngine(cfg Config, log logger.Logger, notify Notifications) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.CleanupInterval < minCleanupInterval {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	e := &Engine{
		cfg:        cfg,
		log:        log,
		notify:     notify,
		states:     make(map[stateKey]*state),
		nextID:     1,
		maxHistory: clampMaxHistory(cfg.MaxHistory),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	for _, src := range []Source{SourceCPU, SourceMemory, SourceTemperature} {
		for _, sev := range []Severity{SeverityWarning, SeverityCritical} {
			e.states[stateKey{src, sev}] = &state{}
		}
	}

	e.cleanupTicker = time.NewTicker(e.cfg.CleanupInterval)
	go e.cleanupLoop()

	return e
}

// Close stops the background cleanup. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.stopCh)
		<-e.doneCh
		e.cleanupTicker.Stop()
	})
}

// EvaluateCPU runs the usage and temperature state machines against a CPU
// snapshot. An unavailable temperature reading leaves the temperature
// states untouched: no reading is not the same as a recovered one.
func (e *Engine) EvaluateCPU(snap monitor.CPUSnapshot) {
	now := time.Now()
	var q queued

	e.mu.Lock()
	e.evaluateLocked(SourceCPU, snap.TotalUsage, e.cfg.CPUWarning, e.cfg.CPUCritical, now, &q,
		"CPU usage exceeded critical threshold: %.1f%%", "CPU usage high: %.1f%%")
	if snap.TemperatureOK {
		e.evaluateLocked(SourceTemperature, snap.Temperature, e.cfg.TempWarning, e.cfg.TempCritical, now, &q,
			"CPU temperature: %.1f°C", "CPU temperature: %.1f°C")
	}
	e.mu.Unlock()

	e.deliver(q)
}

// EvaluateMemory runs the memory state machine against a memory snapshot
func (e *Engine) EvaluateMemory(snap monitor.MemorySnapshot) {
	now := time.Now()
	var q queued

	e.mu.Lock()
	e.evaluateLocked(SourceMemory, snap.UsagePercent, e.cfg.MemoryWarning, e.cfg.MemoryCritical, now, &q,
		"Memory usage critical: %.1f%%", "Memory usage high: %.1f%%")
	e.mu.Unlock()

	e.deliver(q)
}

// Acknowledge marks an alert acknowledged. Unknown ids are a no-op. The
// active/cooldown state machine is unaffected.
func (e *Engine) Acknowledge(id int) {
	var q queued

	e.mu.Lock()
	for i := range e.alerts {
		if e.alerts[i].ID == id && !e.alerts[i].Acknowledged {
			e.alerts[i].Acknowledged = true
			q.countChanged = true
			break
		}
	}
	e.mu.Unlock()

	e.deliver(q)
}

// ActiveAlerts returns a copy of all unacknowledged alerts, oldest first
func (e *Engine) ActiveAlerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Alert
	for i := range e.alerts {
		if !e.alerts[i].Acknowledged {
			out = append(out, e.alerts[i])
		}
	}

	return out
}

// AllAlerts returns a copy of the alert log, oldest first
func (e *Engine) AllAlerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, len(e.alerts))
	copy(out, e.alerts)

	return out
}

func (e *Engine) UnacknowledgedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.unacknowledgedLocked()
}

// IsActive reports whether the (source, severity) condition is currently held
func (e *Engine) IsActive(src Source, sev Severity) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[stateKey{src, sev}]

	return ok && st.active
}

// ClearAll empties the alert log. State machines are untouched.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.alerts = nil
	e.mu.Unlock()

	e.deliver(queued{countChanged: true})
}

// ClearAcknowledged removes every acknowledged alert
func (e *Engine) ClearAcknowledged() {
	e.mu.Lock()
	kept := e.alerts[:0]
	for i := range e.alerts {
		if !e.alerts[i].Acknowledged {
			kept = append(kept, e.alerts[i])
		}
	}
	e.alerts = kept
	e.mu.Unlock()

	e.deliver(queued{countChanged: true})
}

// SetMaxHistory resizes the alert log bound, clamped to [50,1000]
func (e *Engine) SetMaxHistory(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.maxHistory = clampMaxHistory(max)
	if len(e.alerts) > e.maxHistory {
		e.alerts = e.alerts[len(e.alerts)-e.maxHistory:]
	}
}

// SetCleanupInterval changes the background expiry period, minimum 1 minute
func (e *Engine) SetCleanupInterval(interval time.Duration) {
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}

	e.mu.Lock()
	e.cfg.CleanupInterval = interval
	e.mu.Unlock()

	e.cleanupTicker.Reset(interval)
}

func (e *Engine) evaluateLocked(
	src Source,
	value, warning, critical float64,
	now time.Time,
	q *queued,
	criticalFormat, warningFormat string,
) {
	switch {
	case value >= critical:
		// Critical wins the tick outright; warning is not evaluated.
		if e.shouldFireLocked(src, SeverityCritical, now) {
			e.emitLocked(src, SeverityCritical, fmt.Sprintf(criticalFormat, value), now, q)
			st := e.states[stateKey{src, SeverityCritical}]
			st.active = true
			st.lastFiredAt = now
		}
	case value >= warning:
		if e.shouldFireLocked(src, SeverityWarning, now) {
			e.emitLocked(src, SeverityWarning, fmt.Sprintf(warningFormat, value), now, q)
			st := e.states[stateKey{src, SeverityWarning}]
			st.active = true
			st.lastFiredAt = now
		}
	default:
		// Implicit recovery: clear both flags, emit nothing.
		e.states[stateKey{src, SeverityWarning}].active = false
		e.states[stateKey{src, SeverityCritical}].active = false
	}
}

// shouldFireLocked is edge-triggered with cooldown re-firing: fire on first
// crossing, then again only after the cooldown elapses while the condition
// persists.
func (e *Engine) shouldFireLocked(src Source, sev Severity, now time.Time) bool {
	st := e.states[stateKey{src, sev}]

	return !st.active || now.Sub(st.lastFiredAt) > e.cfg.Cooldown
}

func (e *Engine) emitLocked(src Source, sev Severity, message string, now time.Time, q *queued) {
	a := Alert{
		ID:        e.nextID,
		Severity:  sev,
		Title:     alertTitle(src, sev),
		Message:   message,
		Source:    src,
		Timestamp: now,
	}
	e.nextID++

	e.alerts = append(e.alerts, a)
	if len(e.alerts) > e.maxHistory {
		e.alerts = e.alerts[1:]
	}

	q.alerts = append(q.alerts, a)
	q.countChanged = true
}

func (e *Engine) cleanupLoop() {
	defer close(e.doneCh)

	for {
		select {
		case <-e.stopCh:
			return
		case <-e.cleanupTicker.C:
			e.Cleanup()
		}
	}
}

// Cleanup removes alerts that are both acknowledged and older than the
// retention window, notifying only when something was actually removed. It
// runs periodically in the background; calling it directly is allowed.
func (e *Engine) Cleanup() {
	cutoff := time.Now().Add(-e.cfg.Retention)
	var q queued

	e.mu.Lock()
	kept := e.alerts[:0]
	for i := range e.alerts {
		if e.alerts[i].Acknowledged && e.alerts[i].Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e.alerts[i])
	}
	if len(kept) != len(e.alerts) {
		q.countChanged = true
		e.log.Debug().Int("removed", len(e.alerts)-len(kept)).Msg("Expired acknowledged alerts")
	}
	e.alerts = kept
	e.mu.Unlock()

	e.deliver(q)
}

func (e *Engine) deliver(q queued) {
	for _, a := range q.alerts {
		if e.notify.OnAlert != nil {
			e.notify.OnAlert(a)
		}
		if a.Severity >= SeverityCritical && e.notify.OnCritical != nil {
			e.notify.OnCritical(a)
		}
	}

	if q.countChanged && e.notify.OnCountChanged != nil {
		e.mu.Lock()
		total := len(e.alerts)
		unacked := e.unacknowledgedLocked()
		e.mu.Unlock()

		e.notify.OnCountChanged(total, unacked)
	}
}

func (e *Engine) unacknowledgedLocked() int {
	count := 0
	for i := range e.alerts {
		if !e.alerts[i].Acknowledged {
			count++
		}
	}

	return count
}

func alertTitle(src Source, sev Severity) string {
	var name string
	switch src {
	case SourceCPU:
		name = "CPU"
	case SourceMemory:
		name = "Memory"
	case SourceTemperature:
		name = "Temperature"
	default:
		name = string(src)
	}

	if sev >= SeverityCritical {
		return name + " Critical"
	}

	return name + " Warning"
}

func clampMaxHistory(max int) int {
	if max < minMaxHistory {
		return minMaxHistory
	}
	if max > maxMaxHistory {
		return maxMaxHistory
	}

	return max
}
