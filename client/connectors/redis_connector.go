/*
 * @module RedisConnector
 * @description Redis发布器，把策略决策事件发布到 Redis 频道
 * @architecture 适配器模式 - 封装第三方Redis客户端，提供统一的发布接口
 * @documentReference dev_docs/requirements.md#11.4
 * @stateFlow 决策提交 -> 序列化 -> PUBLISH
 * @rules 共享策略存储使用的 Redis 客户端，关闭时不关闭底层客户端
 * @dependencies github.com/go-redis/redis/v8, encoding/json
 * @refs service/notifier, service/models/policy.go
 */
package connectors

import (
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig Redis发布配置
type RedisConfig struct {
	Channel      string
	WriteTimeout time.Duration
}

// RedisConnector Redis连接器结构体
type RedisConnector struct {
	config *RedisConfig
	client redis.UniversalClient
}

// NewRedisConnector 基于已有客户端创建Redis连接器
func NewRedisConnector(client redis.UniversalClient, config *RedisConfig) *RedisConnector {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	return &RedisConnector{config: config, client: client}
}

// Name 发布器名称
func (rc *RedisConnector) Name() string { return "redis" }

// PublishDecision 发布策略决策事件
func (rc *RedisConnector) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rc.config.WriteTimeout)
	defer cancel()

	receivers, err := rc.client.Publish(ctx, rc.config.Channel, payload).Result()
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	slog.Debug("消息已发布到频道", "channel", rc.config.Channel, "run_id", event.RunID, "receivers", receivers)
	return nil
}

// Close 客户端由调用方管理
func (rc *RedisConnector) Close() error { return nil }
