package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/internal/apperr"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "test op", Options{Retries: 3, MinTimeout: time.Millisecond, MaxTimeout: 5 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return apperr.Wrap("test op", apperr.KindTransient, errors.New("temporary"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_StopsImmediatelyOnNonRetryable(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "test op", Options{}, func(ctx context.Context) error {
		attempts++
		return apperr.Wrap("test op", apperr.KindAuth, errors.New("401 Unauthorized"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsRetriesAndWrapsLastError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), "test op", Options{Retries: 2, MinTimeout: time.Millisecond, MaxTimeout: 2 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return apperr.Wrap("test op", apperr.KindTransient, errors.New("still failing"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestWithRetry_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := WithRetry(ctx, "test op", Options{Retries: 3, MinTimeout: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return apperr.Wrap("test op", apperr.KindTransient, errors.New("fail"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "first attempt runs even with a cancelled context; the sleep before attempt 2 is where cancellation is observed")
}
