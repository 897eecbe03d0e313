package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableError(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection refused")
		}
		return 42, nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func() (string, error) {
		calls++
		return "", errors.New("401 unauthorized")
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func() (string, error) {
		calls++
		return "", errors.New("timeout")
	}, fastConfig())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.Equal(t, 3, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, func() (string, error) {
		calls++
		cancel()
		return "", errors.New("timeout")
	}, Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("401 unauthorized")))
	assert.False(t, IsRetryable(errors.New("404 not found")))
	assert.False(t, IsRetryable(errors.New("context canceled")))
	assert.False(t, IsRetryable(errors.New("something odd")))

	assert.True(t, IsRetryable(errors.New("request timeout")))
	assert.True(t, IsRetryable(errors.New("429 too many requests")))
	assert.True(t, IsRetryable(errors.New("502 bad gateway")))
	assert.True(t, IsRetryable(errors.New("network is unreachable")))
}

func TestBackoffFor(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Second

	assert.Equal(t, 100*time.Millisecond, backoffFor(0, initial, max))
	assert.Equal(t, 200*time.Millisecond, backoffFor(1, initial, max))
	assert.Equal(t, 400*time.Millisecond, backoffFor(2, initial, max))
	assert.Equal(t, time.Second, backoffFor(5, initial, max))
}
