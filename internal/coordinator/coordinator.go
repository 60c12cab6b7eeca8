package coordinator

import (
	"sync"
	"time"

	"codeberg.org/mutker/sysmond/internal/alert"
	"codeberg.org/mutker/sysmond/internal/errors"
	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/monitor"
	"codeberg.org/mutker/sysmond/internal/sampler"
	"codeberg.org/mutker/sysmond/internal/source"
)

// Overview is the combined view of the latest CPU and memory snapshots.
// Timestamp is when the overview was assembled, not when either snapshot
// was taken.
type Overview struct {
	CPU       monitor.CPUSnapshot
	Memory    monitor.MemorySnapshot
	Timestamp time.Time
}

// IsValid reports whether both halves carry real data. An overview built
// before either monitor has completed a tick is not valid and is never
// delivered to subscribers.
func (o Overview) IsValid() bool {
	return o.CPU.IsValid() && o.Memory.IsValid()
}

// Notifications are optional consumer callbacks, all invoked from sampler
// goroutines. OnOverview only ever receives valid overviews.
type Notifications struct {
	OnOverview func(Overview)
	OnAlert    func(alert.Alert)
	OnCritical func(alert.Alert)
}

// Config assembles the per-component configuration handed down by the caller
type Config struct {
	Monitor monitor.Config
	Alerts  alert.Config
}

// Coordinator owns the CPU and memory monitors, the alert engine and an
// aggregation sampler that periodically assembles the combined overview.
// Monitor snapshots flow into the alert engine through subscriptions, so
// pausing and resuming never loses engine state.
type Coordinator struct {
	cfg    Config
	src    source.Reader
	log    logger.Logger
	notify Notifications

	mu          sync.RWMutex
	initialized bool
	running     bool
	overview    Overview

	cpu    *monitor.CPUMonitor
	memory *monitor.MemoryMonitor
	engine *alert.Engine
	agg    *sampler.Sampler
}

func New(cfg Config, src source.Reader, log logger.Logger, notify Notifications) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		src:    src,
		log:    log,
		notify: notify,
	}
}

// Initialize constructs the monitors and the alert engine. Calling it again
// after success is a no-op.
func (c *Coordinator) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	c.engine = alert.NewEngine(c.cfg.Alerts, c.log, alert.Notifications{
		OnAlert:    c.notify.OnAlert,
		OnCritical: c.notify.OnCritical,
	})

	cpu, err := monitor.NewCPUMonitor(c.cfg.Monitor, c.src, c.log, sampler.Notifications{})
	if err != nil {
		c.engine.Close()
		c.engine = nil

		return errors.New().Wrap(ErrInitFailed, err)
	}
	c.cpu = cpu
	c.memory = monitor.NewMemoryMonitor(c.cfg.Monitor, c.src, c.log, sampler.Notifications{})

	c.cpu.Subscribe(func(snap monitor.CPUSnapshot) {
		c.engine.EvaluateCPU(snap)
	})
	c.memory.Subscribe(func(snap monitor.MemorySnapshot) {
		c.engine.EvaluateMemory(snap)
	})

	c.agg = sampler.New("aggregator", &aggregator{c: c}, c.cfg.Monitor.Interval, c.log, sampler.Notifications{})

	c.initialized = true
	c.log.Debug().Msg("Coordinator initialized")

	return nil
}

// Start begins sampling on all monitors. No-op while already running.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()

		return errors.New().New(ErrNotInitialized)
	}
	if c.running {
		c.mu.Unlock()

		return nil
	}
	c.running = true
	cpu, mem, agg := c.cpu, c.memory, c.agg
	c.mu.Unlock()

	cpu.Start()
	mem.Start()
	agg.Start()
	c.log.Info().Msg("Monitoring started")

	return nil
}

// Stop halts all samplers and waits for in-flight ticks. No-op when not
// running. The alert engine keeps its history and state.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()

		return
	}
	c.running = false
	cpu, mem, agg := c.cpu, c.memory, c.agg
	c.mu.Unlock()

	agg.Stop()
	cpu.Stop()
	mem.Stop()
	c.log.Info().Msg("Monitoring stopped")
}

// Pause suspends sampling without tearing anything down
func (c *Coordinator) Pause() {
	cpu, mem, agg := c.components()
	if cpu == nil {
		return
	}

	cpu.Pause()
	mem.Pause()
	agg.Pause()
	c.log.Debug().Msg("Monitoring paused")
}

func (c *Coordinator) Resume() {
	cpu, mem, agg := c.components()
	if cpu == nil {
		return
	}

	cpu.Resume()
	mem.Resume()
	agg.Resume()
	c.log.Debug().Msg("Monitoring resumed")
}

// SetUpdateInterval propagates a new sampling interval to every sampler,
// taking effect on the next tick boundary.
func (c *Coordinator) SetUpdateInterval(interval time.Duration) {
	cpu, mem, agg := c.components()
	if cpu == nil {
		return
	}

	cpu.SetInterval(interval)
	mem.SetInterval(interval)
	agg.SetInterval(interval)
}

// SetHistorySize resizes both monitors' history buffers
func (c *Coordinator) SetHistorySize(size int) {
	cpu, mem, _ := c.components()
	if cpu == nil {
		return
	}

	cpu.SetHistorySize(size)
	mem.SetHistorySize(size)
}

func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.running
}

// CurrentOverview returns the most recently assembled overview. Check
// IsValid before trusting it; it is zero until the first aggregation tick
// after both monitors have published.
func (c *Coordinator) CurrentOverview() Overview {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o := c.overview
	o.CPU = o.CPU.Clone()

	return o
}

func (c *Coordinator) CurrentCPU() monitor.CPUSnapshot {
	cpu, _, _ := c.components()
	if cpu == nil {
		return monitor.CPUSnapshot{}
	}

	return cpu.CurrentSnapshot()
}

func (c *Coordinator) CurrentMemory() monitor.MemorySnapshot {
	_, mem, _ := c.components()
	if mem == nil {
		return monitor.MemorySnapshot{}
	}

	return mem.CurrentSnapshot()
}

func (c *Coordinator) CPUHistory() []monitor.CPUSnapshot {
	cpu, _, _ := c.components()
	if cpu == nil {
		return nil
	}

	return cpu.History()
}

func (c *Coordinator) MemoryHistory() []monitor.MemorySnapshot {
	_, mem, _ := c.components()
	if mem == nil {
		return nil
	}

	return mem.History()
}

// Alerts exposes the alert engine for acknowledgement and queries
func (c *Coordinator) Alerts() *alert.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.engine
}

// Close stops sampling and shuts down the alert engine's background cleanup
func (c *Coordinator) Close() {
	c.Stop()

	c.mu.Lock()
	engine := c.engine
	c.mu.Unlock()

	if engine != nil {
		engine.Close()
	}
}

func (c *Coordinator) components() (*monitor.CPUMonitor, *monitor.MemoryMonitor, *sampler.Sampler) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.cpu, c.memory, c.agg
}

// aggregator is the aggregation sampler's strategy. All the work happens in
// Publish; the phase hooks have nothing to collect or derive because the
// monitors own their own sampling.
type aggregator struct {
	c *Coordinator
}

func (a *aggregator) Collect() error  { return nil }
func (a *aggregator) Derive() error   { return nil }
func (a *aggregator) Validate() error { return nil }

// Publish assembles the overview from the monitors' latest snapshots.
// Monitor accessors are called before taking the coordinator lock so the
// lock order is always sampler, then monitor, then coordinator.
func (a *aggregator) Publish() {
	c := a.c
	cpu, mem, _ := c.components()
	if cpu == nil {
		return
	}

	o := Overview{
		CPU:       cpu.CurrentSnapshot(),
		Memory:    mem.CurrentSnapshot(),
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.overview = o
	c.mu.Unlock()

	if o.IsValid() && c.notify.OnOverview != nil {
		c.notify.OnOverview(o)
	}
}
