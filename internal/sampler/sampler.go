package sampler

import (
	"sync"
	"time"

	"codeberg.org/mutker/sysmond/internal/errors"
	"codeberg.org/mutker/sysmond/internal/logger"
)

const (
	// MinInterval is the floor for the sampling interval; anything lower is clamped.
	MinInterval = 100 * time.Millisecond

	DefaultInterval = 1 * time.Second
)

// Strategy supplies the per-metric phases of a sampling tick. The Sampler
// runs Collect, Derive and Validate in order; if none of them fail, Publish
// makes the derived snapshot visible to consumers. All four run under the
// sampler's exclusive lock, so no two ticks of the same sampler overlap.
type Strategy interface {
	Collect() error
	Derive() error
	Validate() error
	Publish()
}

// Notifications are optional lifecycle callbacks. They are invoked outside
// the sampler lock and must be safe to call from the sampler goroutine.
type Notifications struct {
	OnStarted func()
	OnStopped func()
	OnError   func(error)
}

// Sampler drives a Strategy at a fixed interval with start/stop/pause/resume
// semantics. A stopped sampler can be started again.
type Sampler struct {
	name     string
	strategy Strategy
	log      logger.Logger
	notify   Notifications

	mu         sync.Mutex
	interval   time.Duration
	running    bool
	paused     bool
	lastUpdate time.Time

	stopCh   chan struct{}
	reloadCh chan struct{}
	doneCh   chan struct{}
}

func New(name string, strategy Strategy, interval time.Duration, log logger.Logger, notify Notifications) *Sampler {
	if interval < MinInterval {
		interval = MinInterval
	}

	return &Sampler{
		name:     name,
		strategy: strategy,
		interval: interval,
		log:      log,
		notify:   notify,
	}
}

// Start begins ticking. It is a no-op if the sampler is already running.
// The first tick fires one interval after Start returns.
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}

	s.running = true
	s.paused = false
	s.stopCh = make(chan struct{})
	s.reloadCh = make(chan struct{}, 1)
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.reloadCh, s.doneCh)
	s.mu.Unlock()

	s.log.Debug().Str("sampler", s.name).Msg("Sampling started")
	if s.notify.OnStarted != nil {
		s.notify.OnStarted()
	}
}

// Stop cancels pending ticks. An in-flight tick completes before Stop takes
// effect; after Stop returns, no further ticks run. Safe to call repeatedly.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.running = false
	s.paused = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done

	s.log.Debug().Str("sampler", s.name).Msg("Sampling stopped")
	if s.notify.OnStopped != nil {
		s.notify.OnStopped()
	}
}

// Pause suspends tick execution without losing state. Ticks that fall due
// while paused are skipped entirely, not queued.
func (s *Sampler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.paused = true
	}
}

// Resume lifts a pause. The next scheduled tick executes normally.
func (s *Sampler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.paused = false
	}
}

// SetInterval changes the tick interval, clamped to MinInterval. If the
// sampler is running the new interval takes effect immediately.
func (s *Sampler) SetInterval(interval time.Duration) {
	if interval < MinInterval {
		interval = MinInterval
	}

	s.mu.Lock()
	s.interval = interval
	running := s.running
	reload := s.reloadCh
	s.mu.Unlock()

	if running {
		select {
		case reload <- struct{}{}:
		default:
		}
	}
}

func (s *Sampler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Sampler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// LastUpdate returns the time of the last successful publish.
func (s *Sampler) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// IsStale reports whether the last successful publish is older than maxAge.
// Consumers use this to detect a wedged sampler without polling timer state.
func (s *Sampler) IsStale(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastUpdate.IsZero() {
		return true
	}

	return time.Since(s.lastUpdate) > maxAge
}

func (s *Sampler) loop(stopCh, reloadCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-reloadCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.Interval())
		case <-timer.C:
			s.tick()
			timer.Reset(s.Interval())
		}
	}
}

// tick runs the four-phase template. A failing phase skips publish for this
// tick; the previous snapshot stays valid and the sampler recovers on the
// next tick.
func (s *Sampler) tick() {
	s.mu.Lock()
	if s.paused || !s.running {
		s.mu.Unlock()
		return
	}

	tickErr := s.runPhases()
	if tickErr == nil {
		s.strategy.Publish()
		s.lastUpdate = time.Now()
	}
	s.mu.Unlock()

	if tickErr != nil {
		s.log.Warn().Str("sampler", s.name).Err(tickErr).Msg("Tick failed, keeping previous snapshot")
		if s.notify.OnError != nil {
			s.notify.OnError(tickErr)
		}
	}
}

func (s *Sampler) runPhases() error {
	errFactory := errors.New()

	if err := s.strategy.Collect(); err != nil {
		return errFactory.Wrap(errors.ErrCollectFailed, err)
	}
	if err := s.strategy.Derive(); err != nil {
		return errFactory.Wrap(errors.ErrDeriveFailed, err)
	}
	if err := s.strategy.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrValidateFailed, err)
	}

	return nil
}
