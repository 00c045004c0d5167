package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultPollInterval = 20 * time.Millisecond

// LockExecutor 带锁执行器，用于简化锁的使用
type LockExecutor struct {
	lock         DistributedLock
	pollInterval time.Duration
}

// NewLockExecutor 创建带锁执行器
func NewLockExecutor(lock DistributedLock) *LockExecutor {
	return &LockExecutor{lock: lock, pollInterval: defaultPollInterval}
}

// ExecuteWithLockWait 等待获取锁后执行函数，持锁期间按 ttl/3 自动续期
// 与跳过式加锁不同，调用方必须执行，因此会一直等待直到获取锁或 ctx 结束
func (e *LockExecutor) ExecuteWithLockWait(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	if err := e.acquire(ctx, key, ttl); err != nil {
		return err
	}

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()

	go func() {
		interval := ttl / 3
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if refreshErr := e.lock.Refresh(refreshCtx, key, ttl); refreshErr != nil {
					slog.Error("分布式锁: 续期失败", "key", key, "error", refreshErr)
				}
			}
		}
	}()

	// 释放锁不使用调用方 ctx，避免 ctx 取消后锁残留到过期
	defer func() {
		cancelRefresh()
		unlockCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if unlockErr := e.lock.Unlock(unlockCtx, key); unlockErr != nil {
			slog.Error("分布式锁: 释放锁失败", "key", key, "error", unlockErr)
		}
	}()

	return fn()
}

func (e *LockExecutor) acquire(ctx context.Context, key string, ttl time.Duration) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		locked, err := e.lock.TryLock(ctx, key, ttl)
		if err != nil {
			return fmt.Errorf("获取锁失败: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("等待锁 %s 超时: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}
