package alert_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sysmond/internal/alert"
	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() alert.Config {
	cfg := alert.DefaultConfig()
	cfg.Cooldown = 50 * time.Millisecond

	return cfg
}

func newEngine(t *testing.T, cfg alert.Config, notify alert.Notifications) *alert.Engine {
	t.Helper()
	logger.Init(false, false, false)

	e := alert.NewEngine(cfg, logger.Default(), notify)
	t.Cleanup(e.Close)

	return e
}

func cpuSnap(usage float64) monitor.CPUSnapshot {
	return monitor.CPUSnapshot{
		TotalUsage: usage,
		Status:     monitor.StatusNormal,
		Timestamp:  time.Now(),
	}
}

func cpuTempSnap(usage, temperature float64) monitor.CPUSnapshot {
	snap := cpuSnap(usage)
	snap.Temperature = temperature
	snap.TemperatureOK = true

	return snap
}

func memSnap(usage float64) monitor.MemorySnapshot {
	return monitor.MemorySnapshot{
		UsagePercent: usage,
		Status:       monitor.StatusNormal,
		Timestamp:    time.Now(),
	}
}

func TestEngineFiresOnCriticalCrossing(t *testing.T) {
	var mu sync.Mutex
	var fired, criticals []alert.Alert
	e := newEngine(t, testConfig(), alert.Notifications{
		OnAlert: func(a alert.Alert) {
			mu.Lock()
			fired = append(fired, a)
			mu.Unlock()
		},
		OnCritical: func(a alert.Alert) {
			mu.Lock()
			criticals = append(criticals, a)
			mu.Unlock()
		},
	})

	e.EvaluateCPU(cpuSnap(92.5))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fired, 1, "Expected exactly one alert")
	assert.Equal(t, alert.SeverityCritical, fired[0].Severity, "Expected critical to win over warning")
	assert.Equal(t, alert.SourceCPU, fired[0].Source)
	assert.Contains(t, fired[0].Message, "92.5")
	require.Len(t, criticals, 1, "Expected the critical callback too")
	assert.True(t, e.IsActive(alert.SourceCPU, alert.SeverityCritical))
	assert.False(t, e.IsActive(alert.SourceCPU, alert.SeverityWarning), "Expected warning state untouched")
}

func TestEngineCooldownSuppressesRefire(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateCPU(cpuSnap(92.0))
	e.EvaluateCPU(cpuSnap(93.0))
	e.EvaluateCPU(cpuSnap(94.0))
	assert.Len(t, e.AllAlerts(), 1, "Expected the sustained condition suppressed within cooldown")

	time.Sleep(60 * time.Millisecond)
	e.EvaluateCPU(cpuSnap(95.0))
	assert.Len(t, e.AllAlerts(), 2, "Expected a re-fire once the cooldown elapsed")
}

func TestEngineRecoveryClearsSilently(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateCPU(cpuSnap(92.0))
	require.Len(t, e.AllAlerts(), 1)

	e.EvaluateCPU(cpuSnap(10.0))
	assert.Len(t, e.AllAlerts(), 1, "Expected no recovery alert")
	assert.False(t, e.IsActive(alert.SourceCPU, alert.SeverityCritical), "Expected the condition cleared")

	// Re-crossing after recovery fires immediately, cooldown or not
	e.EvaluateCPU(cpuSnap(92.0))
	assert.Len(t, e.AllAlerts(), 2, "Expected an immediate fire on a fresh crossing")
}

func TestEngineSeverityStatesAreIndependent(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateCPU(cpuSnap(78.0))
	require.Len(t, e.AllAlerts(), 1, "Expected a warning alert")

	// Escalation to critical fires despite the active warning state
	e.EvaluateCPU(cpuSnap(92.0))
	alerts := e.AllAlerts()
	require.Len(t, alerts, 2, "Expected the escalation to fire")
	assert.Equal(t, alert.SeverityCritical, alerts[1].Severity)

	// Dropping back into warning range within the warning's cooldown stays quiet
	e.EvaluateCPU(cpuSnap(78.0))
	assert.Len(t, e.AllAlerts(), 2, "Expected the still-active warning suppressed")
}

func TestEngineWarningRefiresAfterRecoveryDespiteCriticalCooldown(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateCPU(cpuSnap(92.0))
	e.EvaluateCPU(cpuSnap(10.0))
	require.False(t, e.IsActive(alert.SourceCPU, alert.SeverityCritical))

	// The critical cooldown has not elapsed, but the warning state is its own
	e.EvaluateCPU(cpuSnap(78.0))

	alerts := e.AllAlerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, alert.SeverityWarning, alerts[1].Severity, "Expected a fresh warning fire")
}

func TestEngineTemperatureEvaluation(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateCPU(cpuTempSnap(10.0, 82.0))
	alerts := e.AllAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SourceTemperature, alerts[0].Source)
	assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)

	// Unavailable reading leaves the state machine alone
	e.EvaluateCPU(cpuSnap(10.0))
	assert.True(t, e.IsActive(alert.SourceTemperature, alert.SeverityCritical),
		"Expected an unavailable reading to not count as recovery")

	// The condition is still active, so the same reading stays suppressed
	e.EvaluateCPU(cpuTempSnap(10.0, 82.0))
	assert.Len(t, e.AllAlerts(), 1)

	// A real reading below the threshold clears it
	e.EvaluateCPU(cpuTempSnap(10.0, 45.0))
	assert.False(t, e.IsActive(alert.SourceTemperature, alert.SeverityCritical))
}

func TestEngineMemoryEvaluation(t *testing.T) {
	e := newEngine(t, testConfig(), alert.Notifications{})

	e.EvaluateMemory(memSnap(96.0))

	alerts := e.AllAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SourceMemory, alerts[0].Source)
	assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)
}

func TestEngineAcknowledge(t *testing.T) {
	var mu sync.Mutex
	var lastTotal, lastUnacked int
	e := newEngine(t, testConfig(), alert.Notifications{
		OnCountChanged: func(total, unacked int) {
			mu.Lock()
			lastTotal, lastUnacked = total, unacked
			mu.Unlock()
		},
	})

	e.EvaluateCPU(cpuSnap(92.0))
	id := e.AllAlerts()[0].ID

	e.Acknowledge(id)
	assert.Equal(t, 0, e.UnacknowledgedCount())
	assert.Empty(t, e.ActiveAlerts(), "Expected acknowledged alerts excluded from the active view")
	assert.Len(t, e.AllAlerts(), 1, "Expected the alert retained in the log")

	mu.Lock()
	assert.Equal(t, 1, lastTotal)
	assert.Equal(t, 0, lastUnacked)
	mu.Unlock()

	// Unknown id is a no-op
	e.Acknowledge(9999)
	assert.Len(t, e.AllAlerts(), 1)
}

func TestEngineHistoryEviction(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Nanosecond
	cfg.MaxHistory = 10 // clamped up to the minimum
	e := newEngine(t, cfg, alert.Notifications{})

	for i := 0; i < 55; i++ {
		e.EvaluateCPU(cpuSnap(92.0))
		time.Sleep(time.Microsecond)
	}

	alerts := e.AllAlerts()
	assert.Len(t, alerts, 50, "Expected the log capped at the minimum bound")
	assert.Equal(t, 6, alerts[0].ID, "Expected the oldest entries evicted")
}

func TestEngineClearAcknowledged(t *testing.T) {
	cfg := testConfig()
	cfg.Cooldown = time.Nanosecond
	e := newEngine(t, cfg, alert.Notifications{})

	e.EvaluateCPU(cpuSnap(92.0))
	time.Sleep(time.Microsecond)
	e.EvaluateCPU(cpuSnap(93.0))
	require.Len(t, e.AllAlerts(), 2)

	e.Acknowledge(e.AllAlerts()[0].ID)
	e.ClearAcknowledged()

	alerts := e.AllAlerts()
	require.Len(t, alerts, 1, "Expected only the unacknowledged alert kept")
	assert.False(t, alerts[0].Acknowledged)

	e.ClearAll()
	assert.Empty(t, e.AllAlerts())
}

func TestEngineCleanupExpiresAcknowledged(t *testing.T) {
	cfg := testConfig()
	cfg.Retention = time.Nanosecond
	e := newEngine(t, cfg, alert.Notifications{})

	e.EvaluateCPU(cpuSnap(92.0))
	e.EvaluateMemory(memSnap(96.0))
	e.Acknowledge(e.AllAlerts()[0].ID)

	time.Sleep(time.Microsecond)
	e.Cleanup()

	alerts := e.AllAlerts()
	require.Len(t, alerts, 1, "Expected only the acknowledged alert expired")
	assert.Equal(t, alert.SourceMemory, alerts[0].Source)
}
