package ratelimit

import (
	"io"
	"log/slog"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMemoryFixedWindow(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		d := m.Allow("ip:1.2.3.4", 3, time.Minute)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3-i, d.Remaining(3))
	}
	d := m.Allow("ip:1.2.3.4", 3, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, now.Add(time.Minute), d.Reset)
	assert.True(t, m.Allow("ip:5.6.7.8", 3, time.Minute).Allowed, "keys are independent")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, m.Allow("ip:1.2.3.4", 3, time.Minute).Allowed, "new window")

	m.expire(now.Add(time.Hour))
	assert.Empty(t, m.windows)
}

func TestNonPositiveLimitDisablesLimiting(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	for i := 0; i < 10; i++ {
		assert.True(t, m.Allow("k", 0, time.Minute).Allowed)
	}
}

func TestRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := &Redis{client: client, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	defer r.Close()
	assert.True(t, r.Allow("user:bob", 1, time.Minute).Allowed)
	assert.True(t, r.Allow("user:bob", 1, time.Minute).Allowed)
}
