package monitor

import "codeberg.org/mutker/sysmond/internal/errors"

const (
	ErrCoreCountFailed = errors.ErrorCode("monitor_core_count_failed")
	ErrInitFailed      = errors.ErrInitFailed
)
