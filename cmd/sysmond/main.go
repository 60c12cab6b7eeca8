package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/sysmond/internal/alert"
	"codeberg.org/mutker/sysmond/internal/config"
	"codeberg.org/mutker/sysmond/internal/coordinator"
	"codeberg.org/mutker/sysmond/internal/logger"
	"codeberg.org/mutker/sysmond/internal/monitor"
	"codeberg.org/mutker/sysmond/internal/pid"
	"codeberg.org/mutker/sysmond/internal/source"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	coord := coordinator.New(coordinatorConfig(), source.NewSystemReader(), logger.Default(), coordinator.Notifications{
		OnOverview: logOverview,
		OnAlert:    logAlert,
	})

	if err := coord.Initialize(); err != nil {
		return err
	}
	defer coord.Close()

	if err := coord.Start(); err != nil {
		return err
	}

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Logging system status...")
	}

	<-ctx.Done()

	return nil
}

func coordinatorConfig() coordinator.Config {
	return coordinator.Config{
		Monitor: monitor.Config{
			Interval:       cfg.UpdateInterval(),
			HistorySize:    cfg.HistorySize,
			CPUWarning:     cfg.Thresholds.CPUWarning,
			CPUCritical:    cfg.Thresholds.CPUCritical,
			TempWarning:    cfg.Thresholds.TempWarning,
			TempCritical:   cfg.Thresholds.TempCritical,
			MemoryWarning:  cfg.Thresholds.MemoryWarning,
			MemoryCritical: cfg.Thresholds.MemoryCritical,
			SwapWarning:    cfg.Thresholds.SwapWarning,
			LowMemoryBytes: cfg.Thresholds.LowMemoryBytes,
		},
		Alerts: alert.Config{
			Cooldown:        cfg.Alerts.Cooldown(),
			MaxHistory:      cfg.Alerts.MaxHistory,
			CleanupInterval: cfg.Alerts.CleanupInterval(),
			Retention:       cfg.Alerts.Retention(),
			CPUWarning:      cfg.Thresholds.CPUWarning,
			CPUCritical:     cfg.Thresholds.CPUCritical,
			MemoryWarning:   cfg.Thresholds.MemoryWarning,
			MemoryCritical:  cfg.Thresholds.MemoryCritical,
			TempWarning:     cfg.Thresholds.TempWarning,
			TempCritical:    cfg.Thresholds.TempCritical,
		},
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func logOverview(o coordinator.Overview) {
	if cfg.Debug {
		event := logger.Debug().
			Float64("cpu_usage", o.CPU.TotalUsage).
			Int("core_count", o.CPU.CoreCount).
			Str("cpu_status", o.CPU.Status.String()).
			Float64("memory_usage", o.Memory.UsagePercent).
			Float64("swap_usage", o.Memory.SwapPercent).
			Uint64("memory_available", o.Memory.Available).
			Str("memory_status", o.Memory.Status.String()).
			Bool("swapping", o.Memory.Swapping())
		if o.CPU.TemperatureOK {
			event = event.Float64("temperature", o.CPU.Temperature)
		}
		if o.CPU.FrequencyOK {
			event = event.Float64("frequency_mhz", o.CPU.FrequencyMHz)
		}
		event.Msg("")
	} else if cfg.Verbose || cfg.Monitor {
		logger.Info().
			Float64("cpu_usage", o.CPU.TotalUsage).
			Float64("memory_usage", o.Memory.UsagePercent).
			Str("cpu_status", o.CPU.Status.String()).
			Str("memory_status", o.Memory.Status.String()).
			Msg("")
	}
}

func logAlert(a alert.Alert) {
	event := logger.Warn()
	if a.Severity >= alert.SeverityCritical {
		event = logger.Error()
	}

	event.
		Int("id", a.ID).
		Str("source", string(a.Source)).
		Str("severity", a.Severity.String()).
		Msg(a.Message)
}
