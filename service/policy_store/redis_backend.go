package policy_store

import (
	"adaptive-etl-service/service/models"
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "adaptive_etl:policies:"

// RedisBackend 以 Redis 字符串键保存策略数据，多实例共享
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend 创建Redis后端
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	data, err := b.client.Get(ctx, redisKeyPrefix+string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &models.StoreUnavailableError{Op: "读取 " + string(key), Err: err}
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, key Key, value []byte) error {
	if err := b.client.Set(ctx, redisKeyPrefix+string(key), value, 0).Err(); err != nil {
		return &models.StoreUnavailableError{Op: "写入 " + string(key), Err: err}
	}
	return nil
}

// WriteBatch 使用 MULTI/EXEC 事务写入全部键
func (b *RedisBackend) WriteBatch(ctx context.Context, values map[Key][]byte) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, redisKeyPrefix+string(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return &models.StoreUnavailableError{Op: "批量写入", Err: err}
	}
	return nil
}
