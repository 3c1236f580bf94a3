package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := UpstreamUnavailable("portal request failed", context.DeadlineExceeded)
	assert.Equal(t, "[UPSTREAM_UNAVAILABLE] portal request failed: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, "[UNAUTHORIZED] token rejected", Unauthorized("token rejected").Error())
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	base := Unauthorized("token rejected")
	wrapped := fmt.Errorf("fetch week 12: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeUnauthorized))
	assert.False(t, IsCode(wrapped, ErrCodeUpstreamMalformed))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrCodeUnauthorized))
}

func TestGetCodeFromError(t *testing.T) {
	assert.Equal(t, ErrCodeUpstreamMalformed, GetCodeFromError(UpstreamMalformed("bad json", nil), ErrCodeInvalidArgument))
	assert.Equal(t, ErrCodeInvalidArgument, GetCodeFromError(fmt.Errorf("plain"), ErrCodeInvalidArgument))
}

func TestErrorCode_IsUpstream(t *testing.T) {
	assert.True(t, ErrCodeUnauthorized.IsUpstream())
	assert.True(t, ErrCodeUpstreamUnavailable.IsUpstream())
	assert.True(t, ErrCodeUpstreamMalformed.IsUpstream())
	assert.False(t, ErrCodeInvalidArgument.IsUpstream())
	assert.False(t, ErrCodeEmailIntent.IsUpstream())
}

func TestWithContext(t *testing.T) {
	err := InvalidArgument("bad week").WithContext("week", 0)
	assert.Equal(t, 0, err.Context["week"])
	assert.Equal(t, ErrCodeInvalidArgument, err.Code)
}
