package sampler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/sysmond/internal/errors"
	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStrategy counts phase executions. collectErr makes every Collect
// fail; collectDelay simulates a slow read.
type countingStrategy struct {
	collects  atomic.Int32
	publishes atomic.Int32

	collectErr   error
	collectDelay time.Duration
	collectBegan chan struct{}
}

func (c *countingStrategy) Collect() error {
	c.collects.Add(1)
	if c.collectBegan != nil {
		select {
		case c.collectBegan <- struct{}{}:
		default:
		}
	}
	if c.collectDelay > 0 {
		time.Sleep(c.collectDelay)
	}

	return c.collectErr
}

func (c *countingStrategy) Derive() error   { return nil }
func (c *countingStrategy) Validate() error { return nil }

func (c *countingStrategy) Publish() {
	c.publishes.Add(1)
}

func newSampler(strategy sampler.Strategy, notify sampler.Notifications) *sampler.Sampler {
	logger.Init(false, false, false)

	return sampler.New("test", strategy, sampler.MinInterval, logger.Default(), notify)
}

func TestSamplerStartStop(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	assert.False(t, s.IsRunning())

	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		return strategy.publishes.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "Expected at least two ticks")

	s.Stop()
	assert.False(t, s.IsRunning())

	count := strategy.publishes.Load()
	time.Sleep(3 * sampler.MinInterval)
	assert.Equal(t, count, strategy.publishes.Load(), "Expected no ticks after Stop")
}

func TestSamplerStartIsIdempotent(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	s.Start()
	s.Start()
	defer s.Stop()

	assert.True(t, s.IsRunning())
}

func TestSamplerStopIsIdempotent(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	s.Start()
	s.Stop()
	s.Stop()

	assert.False(t, s.IsRunning())
}

func TestSamplerRestart(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	s.Start()
	require.Eventually(t, func() bool {
		return strategy.publishes.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	count := strategy.publishes.Load()
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return strategy.publishes.Load() > count
	}, 2*time.Second, 10*time.Millisecond, "Expected ticks after restart")
}

func TestSamplerPauseSkipsTicks(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return strategy.publishes.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Pause()
	assert.True(t, s.IsPaused())

	count := strategy.publishes.Load()
	time.Sleep(4 * sampler.MinInterval)
	assert.Equal(t, count, strategy.publishes.Load(), "Expected ticks skipped while paused")

	s.Resume()
	assert.False(t, s.IsPaused())

	require.Eventually(t, func() bool {
		return strategy.publishes.Load() > count
	}, 2*time.Second, 10*time.Millisecond, "Expected ticks to resume")
}

func TestSamplerFailedTickSkipsPublish(t *testing.T) {
	var tickErrs atomic.Int32
	strategy := &countingStrategy{
		collectErr: errors.New().New(errors.ErrOperationFailed),
	}
	s := newSampler(strategy, sampler.Notifications{
		OnError: func(error) { tickErrs.Add(1) },
	})

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return tickErrs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "Expected repeated tick errors")

	assert.Equal(t, int32(0), strategy.publishes.Load(), "Expected no publish from failed ticks")
	assert.True(t, s.IsStale(time.Nanosecond), "Expected staleness with no successful publish")
}

func TestSamplerStopWaitsForInFlightTick(t *testing.T) {
	strategy := &countingStrategy{
		collectDelay: 3 * sampler.MinInterval,
		collectBegan: make(chan struct{}, 1),
	}
	s := newSampler(strategy, sampler.Notifications{})

	s.Start()

	select {
	case <-strategy.collectBegan:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never began")
	}

	s.Stop()

	assert.Equal(t, int32(1), strategy.publishes.Load(), "Expected the in-flight tick to publish before Stop returned")
}

func TestSamplerSetIntervalClamps(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	s.SetInterval(time.Millisecond)
	assert.Equal(t, sampler.MinInterval, s.Interval(), "Expected interval clamped to the minimum")

	s.SetInterval(time.Second)
	assert.Equal(t, time.Second, s.Interval())
}

func TestSamplerStaleness(t *testing.T) {
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{})

	assert.True(t, s.IsStale(time.Hour), "Expected staleness before any publish")
	assert.True(t, s.LastUpdate().IsZero())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return strategy.publishes.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, s.IsStale(time.Hour), "Expected freshness after a publish")
	assert.False(t, s.LastUpdate().IsZero())
}

func TestSamplerLifecycleNotifications(t *testing.T) {
	var started, stopped atomic.Int32
	strategy := &countingStrategy{}
	s := newSampler(strategy, sampler.Notifications{
		OnStarted: func() { started.Add(1) },
		OnStopped: func() { stopped.Add(1) },
	})

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	assert.Equal(t, int32(1), started.Load(), "Expected one start notification")
	assert.Equal(t, int32(1), stopped.Load(), "Expected one stop notification")
}
