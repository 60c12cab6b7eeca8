package alert

import "time"

const (
	DefaultCooldown        = 30 * time.Second
	DefaultMaxHistory      = 200
	DefaultCleanupInterval = 5 * time.Minute
	DefaultRetention       = 24 * time.Hour

	minMaxHistory      = 50
	maxMaxHistory      = 1000
	minCleanupInterval = time.Minute
)

// Config is injected at construction; the engine keeps no process-wide state
type Config struct {
	// Cooldown is the minimum time between repeated alerts of the same
	// (source, severity) while the condition persists.
	Cooldown time.Duration

	// MaxHistory bounds the alert log; the oldest entry is dropped on overflow.
	MaxHistory int

	// CleanupInterval is the period of the background expiry pass.
	CleanupInterval time.Duration

	// Retention is how long acknowledged alerts are kept before expiry.
	Retention time.Duration

	// Thresholds evaluated against incoming snapshots.
	CPUWarning     float64
	CPUCritical    float64
	MemoryWarning  float64
	MemoryCritical float64
	TempWarning    float64
	TempCritical   float64
}

func DefaultConfig() Config {
	return Config{
		Cooldown:        DefaultCooldown,
		MaxHistory:      DefaultMaxHistory,
		CleanupInterval: DefaultCleanupInterval,
		Retention:       DefaultRetention,
		CPUWarning:      75.0,
		CPUCritical:     90.0,
		MemoryWarning:   80.0,
		MemoryCritical:  95.0,
		TempWarning:     70.0,
		TempCritical:    80.0,
	}
}
