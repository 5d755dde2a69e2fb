package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorKnownCode(t *testing.T) {
	customErr := NewError(ErrRoomNotFound)
	require.NotNil(t, customErr)
	assert.Equal(t, ErrRoomNotFound, customErr.Code)
	assert.Equal(t, http.StatusNotFound, customErr.Status)
	assert.NotEmpty(t, customErr.Message)
	assert.Zero(t, customErr.RetryAfterSec)
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	customErr := NewError(999999)
	require.NotNil(t, customErr)
	assert.Equal(t, ErrUnknown, customErr.Code)
	assert.Equal(t, http.StatusInternalServerError, customErr.Status)
}

func TestNewErrorReturnsFreshCopy(t *testing.T) {
	first := NewError(ErrRoomNotFound)
	first.Message = "mutated"

	second := NewError(ErrRoomNotFound)
	assert.NotEqual(t, "mutated", second.Message, "errors must not share template state")
}

func TestNewRateLimitError(t *testing.T) {
	customErr := NewRateLimitError(42)
	require.NotNil(t, customErr)
	assert.Equal(t, ErrRateLimitExceeded, customErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, customErr.Status)
	assert.Equal(t, 42, customErr.RetryAfterSec)
}
