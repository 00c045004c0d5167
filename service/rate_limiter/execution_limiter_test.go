package rate_limiter

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(nil, 2, time.Minute).(*LocalLimiter)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	r, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)

	r, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, r.Allowed)
	assert.Equal(t, now.Add(time.Minute).Unix(), r.ResetAt)

	r, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, r.Allowed, "不同客户端独立计数")

	now = now.Add(time.Minute)
	r, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, r.Allowed, "窗口结束后重置")
	assert.Len(t, limiter.windows, 1, "过期窗口被回收")
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15, DialTimeout: time.Second})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis不可用，跳过测试: %v", err)
	}

	limiter := NewLimiter(client, 1, time.Minute)
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())

	r, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, r.Allowed)

	r, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)
}
