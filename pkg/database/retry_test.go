package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0
		result, err := retryWithBackoff(context.Background(), 5, func() (int, error) {
			attempts++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries on busy error and succeeds", func(t *testing.T) {
		attempts := 0
		result, err := retryWithBackoff(context.Background(), 5, func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("database is locked")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, attempts)
	})

	t.Run("fails immediately on non-busy error", func(t *testing.T) {
		attempts := 0
		_, err := retryWithBackoff(context.Background(), 5, func() (int, error) {
			attempts++
			return 0, errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("does not retry unique violations", func(t *testing.T) {
		attempts := 0
		_, err := retryWithBackoff(context.Background(), 5, func() (int, error) {
			attempts++
			return 0, errors.New("UNIQUE constraint failed: borrows.user_id, borrows.book_id")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("exhausts all retries on persistent busy error", func(t *testing.T) {
		attempts := 0
		_, err := retryWithBackoff(context.Background(), 3, func() (int, error) {
			attempts++
			return 0, errors.New("database is locked")
		})
		require.Error(t, err)
		assert.Equal(t, 4, attempts) // 1 initial + 3 retries
		assert.True(t, IsBusyError(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := retryWithBackoff(ctx, 10, func() (int, error) {
			attempts++
			return 0, errors.New("database is locked")
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.GreaterOrEqual(t, attempts, 1)
		assert.Less(t, attempts, 10)
	})

	t.Run("zero retries means one attempt only", func(t *testing.T) {
		attempts := 0
		_, err := retryWithBackoff(context.Background(), 0, func() (int, error) {
			attempts++
			return 0, errors.New("database is locked")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestBackoffDelay(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		delay := backoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, retryBaseDelay)
		assert.LessOrEqual(t, delay, retryMaxDelay)
	}
	// Large attempts stay capped.
	assert.Equal(t, retryMaxDelay, backoffDelay(62))
}
