package config

import (
	"os"
	"time"

	"codeberg.org/mutker/sysmond/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval    = 1000 // ms
	defaultHistorySize = 120

	defaultCPUWarning      = 75.0
	defaultCPUCritical     = 90.0
	defaultMemoryWarning   = 80.0
	defaultMemoryCritical  = 95.0
	defaultTempWarning     = 70.0
	defaultTempCritical    = 80.0
	defaultLowMemoryBytes  = 50 * 1024 * 1024
	defaultAlertCooldown   = 30   // seconds
	defaultAlertMaxHistory = 200  // entries
	defaultAlertCleanup    = 300  // seconds
	defaultAlertRetention  = 24   // hours
	defaultSwapWarning     = 50.0 // percent
)

// Thresholds holds the classification boundaries for metric status and alerts
type Thresholds struct {
	CPUWarning     float64 `mapstructure:"cpu_warning"`
	CPUCritical    float64 `mapstructure:"cpu_critical"`
	MemoryWarning  float64 `mapstructure:"memory_warning"`
	MemoryCritical float64 `mapstructure:"memory_critical"`
	TempWarning    float64 `mapstructure:"temp_warning"`
	TempCritical   float64 `mapstructure:"temp_critical"`
	SwapWarning    float64 `mapstructure:"swap_warning"`
	LowMemoryBytes uint64  `mapstructure:"low_memory_bytes"`
}

// Alerts holds the alert engine tuning knobs
type Alerts struct {
	CooldownSec  int `mapstructure:"cooldown"`
	MaxHistory   int `mapstructure:"max_history"`
	CleanupSec   int `mapstructure:"cleanup_interval"`
	RetentionHrs int `mapstructure:"retention"`
}

type Config struct {
	Interval    int    `mapstructure:"interval"` // ms between samples
	HistorySize int    `mapstructure:"history_size"`
	LogLevel    string `mapstructure:"log_level"`
	Verbose     bool   `mapstructure:"verbose"`
	Debug       bool   `mapstructure:"debug"`
	Monitor     bool   `mapstructure:"monitor"`

	Thresholds Thresholds `mapstructure:"thresholds"`
	Alerts     Alerts     `mapstructure:"alerts"`
}

// Cooldown returns the alert cooldown as a duration
func (a Alerts) Cooldown() time.Duration {
	return time.Duration(a.CooldownSec) * time.Second
}

// CleanupInterval returns the cleanup period as a duration
func (a Alerts) CleanupInterval() time.Duration {
	return time.Duration(a.CleanupSec) * time.Second
}

// Retention returns the acknowledged-alert retention window as a duration
func (a Alerts) Retention() time.Duration {
	return time.Duration(a.RetentionHrs) * time.Hour
}

// UpdateInterval returns the sampling interval as a duration
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("sysmond", pflag.ContinueOnError)
	// Tolerate flags owned by other flag sets, such as the test binary's.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Int("interval", defaultInterval, "Milliseconds between metric samples")
	flags.Int("history-size", defaultHistorySize, "Number of snapshots kept per monitor")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("monitor", false, "Log every sample to the console")
	flags.String("config", "", "Path to configuration file")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("history_size", defaultHistorySize)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("monitor", false)

	v.SetDefault("thresholds.cpu_warning", defaultCPUWarning)
	v.SetDefault("thresholds.cpu_critical", defaultCPUCritical)
	v.SetDefault("thresholds.memory_warning", defaultMemoryWarning)
	v.SetDefault("thresholds.memory_critical", defaultMemoryCritical)
	v.SetDefault("thresholds.temp_warning", defaultTempWarning)
	v.SetDefault("thresholds.temp_critical", defaultTempCritical)
	v.SetDefault("thresholds.swap_warning", defaultSwapWarning)
	v.SetDefault("thresholds.low_memory_bytes", defaultLowMemoryBytes)

	v.SetDefault("alerts.cooldown", defaultAlertCooldown)
	v.SetDefault("alerts.max_history", defaultAlertMaxHistory)
	v.SetDefault("alerts.cleanup_interval", defaultAlertCleanup)
	v.SetDefault("alerts.retention", defaultAlertRetention)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	bindings := map[string]string{
		"interval":     "interval",
		"history-size": "history_size",
		"log-level":    "log_level",
		"verbose":      "verbose",
		"debug":        "debug",
		"monitor":      "monitor",
	}

	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := bindings[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = errFactory.Wrap(errors.ErrBindFlags, err)
		}
	})

	return bindErr
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	v.SetEnvPrefix("SYSMOND")
	v.AutomaticEnv()

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = os.Getenv("SYSMOND_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sysmond")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks the loaded configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < 100 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	t := c.Thresholds
	pairs := []struct {
		warning, critical float64
	}{
		{t.CPUWarning, t.CPUCritical},
		{t.MemoryWarning, t.MemoryCritical},
		{t.TempWarning, t.TempCritical},
	}
	for _, p := range pairs {
		if p.warning < 0 || p.critical < p.warning {
			return errFactory.WithData(errors.ErrInvalidConfig, p)
		}
	}

	if c.Alerts.CooldownSec < 0 || c.Alerts.MaxHistory <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, c.Alerts)
	}

	return nil
}
