/*
 * @module MQTTConnector
 * @description MQTT连接器，将策略决策事件发布到MQTT主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的发布接口
 * @documentReference dev_docs/requirements.md#11.4
 * @stateFlow 连接建立 -> 主题发布 -> 连接断开
 * @rules 支持自动重连、QoS控制
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/notifier
 */
package connectors

import (
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// MQTTConnector MQTT连接器结构体
type MQTTConnector struct {
	config *MQTTConfig
	client mqtt.Client
	mutex  sync.Mutex
}

// NewMQTTConnector 创建新的MQTT连接器
func NewMQTTConnector(config *MQTTConfig) *MQTTConnector {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "broker", config.Broker, "error", err)
	})

	return newMQTTConnectorWithClient(config, mqtt.NewClient(opts))
}

func newMQTTConnectorWithClient(config *MQTTConfig, client mqtt.Client) *MQTTConnector {
	return &MQTTConnector{config: config, client: client}
}

// Name 发布器名称
func (mc *MQTTConnector) Name() string { return "mqtt" }

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.client.IsConnected() {
		return nil
	}

	token := mc.client.Connect()
	if !token.WaitTimeout(mc.config.Timeout) {
		return fmt.Errorf("MQTT连接超时: %s", mc.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}

	slog.Info("MQTT连接器已连接到broker", "broker", mc.config.Broker)
	return nil
}

// PublishDecision 发布策略决策事件
func (mc *MQTTConnector) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	if !mc.client.IsConnected() {
		if err := mc.Connect(); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化消息载荷失败: %w", err)
	}

	token := mc.client.Publish(mc.config.Topic, mc.config.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("发布消息被取消: %w", ctx.Err())
	case <-time.After(mc.config.Timeout):
		return fmt.Errorf("发布消息超时: %s", mc.config.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	slog.Debug("消息已发布到主题", "topic", mc.config.Topic, "qos", mc.config.QoS)
	return nil
}

// Close 断开MQTT连接
func (mc *MQTTConnector) Close() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.client.IsConnected() {
		mc.client.Disconnect(250)
	}
	return nil
}
