package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restapidemo/internal/platform/logger"
)

func TestConnect(t *testing.T) {
	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Connect(context.Background(), logger.Discard(), "db", 5*time.Second, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		bad := errors.New("invalid dsn")
		err := Connect(context.Background(), logger.Discard(), "db", 5*time.Second, func(context.Context) error {
			calls++
			return Permanent(bad)
		})
		require.ErrorIs(t, err, bad)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Connect(ctx, logger.Discard(), "redis", 5*time.Second, func(context.Context) error {
			return errors.New("connection refused")
		})
		require.Error(t, err)
	})
}
