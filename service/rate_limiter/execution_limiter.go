/*
 * @module service/rate_limiter/execution_limiter
 * @description 脚本执行限流，按客户端限制固定时间窗口内的执行次数
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference dev_docs/requirements.md#11.13
 * @stateFlow 构造窗口Key -> 计数 -> 判断是否超限
 * @rules 配置了Redis时多实例共享计数，否则使用进程内计数；限额小于等于0表示不限流
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/middleware/rate_limit.go, service/init.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Result 限流检查结果
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
}

// Limiter 限流器
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// NewLimiter 创建限流器，client 为空时使用进程内计数
func NewLimiter(client redis.UniversalClient, limit int, window time.Duration) Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if client != nil {
		slog.Info("执行限流使用Redis计数", "limit", limit, "window", window)
		return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}
	}
	slog.Info("执行限流使用进程内计数", "limit", limit, "window", window)
	return &LocalLimiter{limit: limit, window: window, now: time.Now, windows: make(map[string]*localWindow)}
}

// RedisLimiter 基于Redis的固定窗口限流器
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

// 超限时不再计数
var allowScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	local max_requests = tonumber(ARGV[1])
	if current >= max_requests then
		return {0, current}
	end
	local new_count = redis.call('INCR', KEYS[1])
	if new_count == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[2])
	end
	return {1, new_count}
`)

// Allow 检查并计数
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	windowSeconds := int64(l.window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	now := l.now().Unix()
	bucket := now / windowSeconds
	redisKey := fmt.Sprintf("adaptive_etl:rate_limit:execute:%s:%d", key, bucket)

	res, err := allowScript.Run(ctx, l.client, []string{redisKey}, l.limit, windowSeconds).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", res)
	}
	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)

	return newResult(allowed == 1, l.limit, int(count), (bucket+1)*windowSeconds), nil
}

// LocalLimiter 进程内固定窗口限流器
type LocalLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*localWindow
}

type localWindow struct {
	start time.Time
	count int
}

// Allow 检查并计数
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.window)) {
		w = &localWindow{start: now}
		l.windows[key] = w
		l.evictExpired(now)
	}

	resetAt := w.start.Add(l.window).Unix()
	if w.count >= l.limit {
		return newResult(false, l.limit, w.count, resetAt), nil
	}
	w.count++
	return newResult(true, l.limit, w.count, resetAt), nil
}

func (l *LocalLimiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, key)
		}
	}
}

func newResult(allowed bool, limit, count int, resetAt int64) *Result {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &Result{Allowed: allowed, Limit: limit, Remaining: remaining, ResetAt: resetAt}
}
