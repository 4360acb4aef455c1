package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func alwaysRetry(error) Action { return Retry }

func TestDoSucceedsFirstTry(t *testing.T) {
	v, err := Do(context.Background(), Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}, alwaysRetry, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}, alwaysRetry, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}, alwaysRetry, func() (int, error) {
		attempts++
		return 0, errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	classify := func(error) Action { return Stop }

	_, err := Do(context.Background(), Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}, classify, func() (int, error) {
		attempts++
		return 0, errTransient
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "permanent errors must not be retried")

	var perm *PermanentError
	assert.ErrorAs(t, err, &perm)
	assert.ErrorIs(t, err, errTransient)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, InitialBackoff: time.Hour}, alwaysRetry, func() (int, error) {
		return 0, errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, _ error, _ time.Duration) { seen = append(seen, attempt) },
	}

	_, _ = Do(context.Background(), p, alwaysRetry, func() (int, error) { return 0, errTransient })
	assert.Equal(t, []int{1, 2}, seen, "no callback on the final attempt")
}

func TestDoVoid(t *testing.T) {
	attempts := 0
	err := DoVoid(context.Background(), Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}, alwaysRetry, func() error {
		attempts++
		if attempts == 1 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
