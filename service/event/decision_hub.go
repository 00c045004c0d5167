/*
 * @module service/event/decision_hub
 * @description 决策事件广播中心，向SSE订阅者推送已提交的策略决策
 * @architecture 事件驱动架构 - 发布订阅
 * @documentReference dev_docs/requirements.md#11.12
 * @stateFlow 订阅 -> 决策提交 -> 广播 -> 客户端推送 -> 取消订阅
 * @rules 广播不阻塞决策提交；订阅者缓冲区满时丢弃该订阅者的本条事件
 * @dependencies github.com/google/uuid, service/models
 * @refs api/controllers/event_controller.go, service/notifier
 */

package event

import (
	"adaptive-etl-service/service/models"
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

// Subscriber SSE订阅者
type Subscriber struct {
	ID       string
	ClientIP string
	Events   chan *models.PolicyDecisionEvent
	done     chan struct{}
}

// Done 订阅被关闭时返回
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub 决策事件广播中心
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// NewHub 创建广播中心
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*Subscriber)}
}

// Subscribe 添加订阅者
func (h *Hub) Subscribe(clientIP string) *Subscriber {
	sub := &Subscriber{
		ID:       uuid.New().String(),
		ClientIP: clientIP,
		Events:   make(chan *models.PolicyDecisionEvent, subscriberBuffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	slog.Debug("决策事件订阅", "subscriber_id", sub.ID, "client_ip", clientIP)
	return sub
}

// Unsubscribe 移除订阅者
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()

	if ok {
		close(sub.done)
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast 向全部订阅者推送事件，返回成功投递数
func (h *Hub) Broadcast(event *models.PolicyDecisionEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subscribers {
		select {
		case sub.Events <- event:
			delivered++
		default:
			slog.Warn("订阅者缓冲区已满，丢弃决策事件",
				"subscriber_id", sub.ID,
				"run_id", event.RunID)
		}
	}
	return delivered
}

// Name 发布器名称
func (h *Hub) Name() string { return "sse" }

// PublishDecision 实现 notifier.Publisher
func (h *Hub) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	h.Broadcast(event)
	return nil
}

// Close 关闭全部订阅
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	return nil
}
