package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolOptionsDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero values pick up defaults", func(t *testing.T) {
		t.Parallel()

		got := PoolOptions{}.withDefaults()
		assert.Equal(t, int32(10), got.MaxConns)
		assert.Equal(t, int32(0), got.MinConns)
		assert.Equal(t, 30*time.Minute, got.MaxConnLifetime)
		assert.Equal(t, 5*time.Minute, got.MaxConnIdleTime)
		assert.Equal(t, 30*time.Second, got.HealthCheckPeriod)
	})

	t.Run("explicit settings survive", func(t *testing.T) {
		t.Parallel()

		opts := PoolOptions{
			MaxConns:          4,
			MinConns:          1,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   time.Minute,
			HealthCheckPeriod: 10 * time.Second,
		}
		assert.Equal(t, opts, opts.withDefaults())
	})

	t.Run("negative min conns is clamped", func(t *testing.T) {
		t.Parallel()

		got := PoolOptions{MinConns: -3}.withDefaults()
		assert.Equal(t, int32(0), got.MinConns)
	})
}
