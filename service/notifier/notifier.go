/*
 * @module service/notifier/notifier
 * @description 决策通知器，把已提交的策略决策扇出到 Kafka/MQTT 等发布器
 * @architecture 观察者模式 - 事件扇出
 * @documentReference dev_docs/requirements.md#11.4
 * @stateFlow 决策提交 -> 构造事件 -> 逐个发布器发送 -> 失败记录日志
 * @rules 通知是尽力而为的，失败不影响已提交的策略状态
 * @dependencies service/models
 * @refs client/connectors, service/policy
 */

package notifier

import (
	"adaptive-etl-service/service/models"
	"context"
	"errors"
	"log/slog"
)

// Publisher 决策事件发布器
type Publisher interface {
	Name() string
	PublishDecision(ctx context.Context, event *models.PolicyDecisionEvent) error
	Close() error
}

// Notifier 扇出通知器
type Notifier struct {
	publishers []Publisher
}

// New 创建通知器，nil 发布器会被忽略
func New(publishers ...Publisher) *Notifier {
	n := &Notifier{}
	for _, p := range publishers {
		if p != nil {
			n.publishers = append(n.publishers, p)
		}
	}
	return n
}

// Len 已注册的发布器数量
func (n *Notifier) Len() int {
	if n == nil {
		return 0
	}
	return len(n.publishers)
}

// Notify 向全部发布器发送事件，返回合并后的错误
func (n *Notifier) Notify(ctx context.Context, event *models.PolicyDecisionEvent) error {
	if n == nil {
		return nil
	}

	var errs []error
	for _, p := range n.publishers {
		if err := p.PublishDecision(ctx, event); err != nil {
			slog.Warn("策略决策通知失败",
				"publisher", p.Name(),
				"run_id", event.RunID,
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭全部发布器
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}

	var errs []error
	for _, p := range n.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
