package monitor

import "time"

// Config carries the knobs shared by both monitors. Thresholds are immutable
// after construction; there is no process-wide threshold state.
type Config struct {
	Interval    time.Duration
	HistorySize int

	CPUWarning  float64
	CPUCritical float64

	TempWarning  float64
	TempCritical float64

	MemoryWarning  float64
	MemoryCritical float64
	SwapWarning    float64
	LowMemoryBytes uint64
}

func DefaultConfig() Config {
	return Config{
		Interval:       time.Second,
		HistorySize:    DefaultHistorySize,
		CPUWarning:     75.0,
		CPUCritical:    90.0,
		TempWarning:    70.0,
		TempCritical:   80.0,
		MemoryWarning:  80.0,
		MemoryCritical: 95.0,
		SwapWarning:    50.0,
		LowMemoryBytes: 50 * 1024 * 1024,
	}
}

// Temperature readings outside this range are sensor glitches; validation
// resets them to unavailable rather than reporting an error.
const (
	minPlausibleTemperature = -40.0
	maxPlausibleTemperature = 150.0
)
