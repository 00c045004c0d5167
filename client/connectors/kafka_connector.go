/*
 * @module KafkaConnector
 * @description Kafka连接器，将策略决策事件序列化为JSON后发送到指定topic
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的发布接口
 * @documentReference dev_docs/requirements.md#11.4
 * @stateFlow 连接建立 -> 消息发送 -> 连接断开
 * @rules 以 run_id 作为消息键，保证同一运行的事件落在同一分区
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/notifier
 */
package connectors

import (
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector Kafka连接器结构体
type KafkaConnector struct {
	config *KafkaConfig
	writer messageWriter
	mutex  sync.Mutex
}

// ParseBrokers 解析逗号分隔的 broker 列表
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewKafkaConnector 创建新的Kafka连接器
func NewKafkaConnector(config *KafkaConfig) *KafkaConnector {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: config.WriteTimeout,
	}

	slog.Info("Kafka连接器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return &KafkaConnector{config: config, writer: writer}
}

// Name 发布器名称
func (kc *KafkaConnector) Name() string { return "kafka" }

// PublishDecision 发送策略决策事件
func (kc *KafkaConnector) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息值失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("policy_decision")},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, kc.config.WriteTimeout)
	defer cancel()

	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if err := kc.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	slog.Debug("消息已发送到topic", "topic", kc.config.Topic, "key", event.RunID)
	return nil
}

// Close 关闭生产者
func (kc *KafkaConnector) Close() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	return kc.writer.Close()
}
