package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	t.Run("互斥获取", func(t *testing.T) {
		ok, err := lock.TryLock(ctx, "k1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = lock.TryLock(ctx, "k1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		locked, err := lock.IsLocked(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, locked)

		require.NoError(t, lock.Unlock(ctx, "k1"))
		ok, err = lock.TryLock(ctx, "k1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("过期后可重新获取", func(t *testing.T) {
		ok, _ := lock.TryLock(ctx, "k2", 10*time.Millisecond)
		require.True(t, ok)
		time.Sleep(20 * time.Millisecond)

		locked, _ := lock.IsLocked(ctx, "k2")
		assert.False(t, locked)
		ok, _ = lock.TryLock(ctx, "k2", time.Minute)
		assert.True(t, ok)
	})

	t.Run("续期不存在的锁报错", func(t *testing.T) {
		assert.Error(t, lock.Refresh(ctx, "absent", time.Second))
	})
}

func TestLockExecutorMutualExclusion(t *testing.T) {
	executor := NewLockExecutor(NewLocalLock())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
		counter int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := executor.ExecuteWithLockWait(ctx, "shared", time.Second, func() error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)
				counter++

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 10, counter)
}

func TestLockExecutorReleasesOnError(t *testing.T) {
	lock := NewLocalLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()

	boom := errors.New("boom")
	err := executor.ExecuteWithLockWait(ctx, "k", time.Second, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	locked, err := lock.IsLocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLockExecutorWaitTimeout(t *testing.T) {
	lock := NewLocalLock()
	ok, _ := lock.TryLock(context.Background(), "busy", time.Minute)
	require.True(t, ok)

	executor := NewLockExecutor(lock)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	called := false
	err := executor.ExecuteWithLockWait(ctx, "busy", time.Second, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestLockExecutorRefreshesLongTask(t *testing.T) {
	lock := NewLocalLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()

	ttl := 30 * time.Millisecond
	err := executor.ExecuteWithLockWait(ctx, "long", ttl, func() error {
		time.Sleep(3 * ttl)
		locked, err := lock.IsLocked(ctx, "long")
		require.NoError(t, err)
		assert.True(t, locked, "持锁期间应自动续期")
		return nil
	})
	require.NoError(t, err)
}
