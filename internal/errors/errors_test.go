package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/sysmond/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryNew(t *testing.T) {
	err := errors.New().New(errors.ErrAlreadyRunning)

	assert.Equal(t, errors.ErrAlreadyRunning, err.Code())
	assert.Equal(t, "Another instance is already running", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestFactoryNewUnknownCodeFallsBackToCodeString(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("some_unlisted_code"))

	assert.Equal(t, "some_unlisted_code", err.Error())
}

func TestFactoryWrap(t *testing.T) {
	cause := stderrors.New("read /proc/stat: permission denied")
	err := errors.New().Wrap(errors.ErrCollectFailed, cause)

	assert.Equal(t, errors.ErrCollectFailed, err.Code())
	assert.Contains(t, err.Error(), "permission denied")
	assert.True(t, errors.Is(err, cause), "Expected the cause reachable through Is")

	require.NotNil(t, err.Unwrap())
	assert.Equal(t, cause, err.Unwrap())
}

func TestFactoryWithData(t *testing.T) {
	err := errors.New().WithData(errors.ErrInvalidInterval, 50)

	assert.Equal(t, errors.ErrInvalidInterval, err.Code())
	assert.Equal(t, 50, err.GetData())
	assert.Contains(t, err.Error(), "50", "Expected the data rendered in the message")
}
