/*
 * @module service/event/pg_relay
 * @description PostgreSQL决策中继，通过 NOTIFY 发布决策并 LISTEN 其它实例的决策，转发给本地广播中心
 * @architecture 事件驱动架构 - 数据库通知
 * @documentReference dev_docs/requirements.md#11.12
 * @stateFlow 决策提交 -> pg_notify -> 各实例监听器收到通知 -> 本地广播
 * @rules 仅在策略存储使用PostgreSQL时启用；本实例的决策同样经由 LISTEN 回到本地广播，不重复投递
 * @dependencies github.com/lib/pq, gorm.io/gorm
 * @refs service/event/decision_hub.go, service/init.go
 */

package event

import (
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DefaultChannel 默认通知频道
const DefaultChannel = "adaptive_etl_decisions"

const pingInterval = 90 * time.Second

// PostgresRelay PostgreSQL决策中继
type PostgresRelay struct {
	db       *gorm.DB
	dsn      string
	channel  string
	hub      *Hub
	listener *pq.Listener
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPostgresRelay 创建中继
func NewPostgresRelay(db *gorm.DB, dsn, channel string, hub *Hub) *PostgresRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PostgresRelay{db: db, dsn: dsn, channel: channel, hub: hub}
}

// Name 发布器名称
func (r *PostgresRelay) Name() string { return "postgres" }

// PublishDecision 通过 pg_notify 发布决策事件
func (r *PostgresRelay) PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化决策事件失败: %w", err)
	}
	if err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", r.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("发送数据库通知失败: %w", err)
	}
	return nil
}

// Start 启动数据库监听
func (r *PostgresRelay) Start() error {
	listener := pq.NewListener(r.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(r.channel); err != nil {
		listener.Close()
		return fmt.Errorf("监听数据库通知失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.listener = listener
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx)

	slog.Info("数据库决策监听器已启动", "channel", r.channel)
	return nil
}

func (r *PostgresRelay) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case n := <-r.listener.Notify:
			// 重连后会收到 nil 通知
			if n != nil {
				r.handle(n.Extra)
			}
		case <-time.After(pingInterval):
			go r.listener.Ping()
		case <-ctx.Done():
			return
		}
	}
}

func (r *PostgresRelay) handle(payload string) {
	var event models.PolicyDecisionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Warn("解析数据库通知失败", "channel", r.channel, "error", err)
		return
	}
	r.hub.Broadcast(&event)
}

// Close 停止监听
func (r *PostgresRelay) Close() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	return r.listener.Close()
}
