package coordinator

import "codeberg.org/mutker/sysmond/internal/errors"

const (
	ErrInitFailed     = errors.ErrorCode("coordinator_init_failed")
	ErrNotInitialized = errors.ErrorCode("coordinator_not_initialized")
)
