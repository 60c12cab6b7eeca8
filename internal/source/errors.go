package source

import "codeberg.org/mutker/sysmond/internal/errors"

const (
	ErrCPUCountersFailed    = errors.ErrorCode("source_cpu_counters_failed")
	ErrMemoryCountersFailed = errors.ErrorCode("source_memory_counters_failed")
	ErrTemperatureFailed    = errors.ErrorCode("source_temperature_failed")
	ErrFrequencyFailed      = errors.ErrorCode("source_frequency_failed")
	ErrCoreCountFailed      = errors.ErrorCode("source_core_count_failed")
	ErrNoSensorData         = errors.ErrorCode("source_no_sensor_data")
)
