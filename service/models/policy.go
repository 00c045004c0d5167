/*
 * @module service/models/policy
 * @description 自适应策略状态与决策历史模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/requirements.md#3
 * @stateFlow 首次评估创建 -> 每次运行覆盖状态 -> 历史追加
 * @rules 状态全局唯一且只保存最近一次决策；历史只追加不截断
 * @dependencies time
 * @refs service/policy, service/policy_store
 */

package models

import "time"

// PolicyState 最近一次策略决策
type PolicyState struct {
	LastRunID    string     `json:"last_run_id"`
	LastScore    *float64   `json:"last_score"`
	NextStrategy Strategy   `json:"next_strategy"`
	Exploration  bool       `json:"exploration"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// IsZero 是否为尚未做出任何决策的默认状态
func (s PolicyState) IsZero() bool {
	return s.LastRunID == "" && s.LastScore == nil && s.NextStrategy == "" && s.UpdatedAt == nil
}

// HistoryEntry 决策历史记录
type HistoryEntry struct {
	RunID        string    `json:"run_id"`
	Score        float64   `json:"score"`
	NextStrategy Strategy  `json:"next_strategy"`
	Exploration  bool      `json:"exploration"`
	Timestamp    time.Time `json:"timestamp"`
}

// PolicyDecisionEvent 决策提交后对外广播的事件
type PolicyDecisionEvent struct {
	RunID        string    `json:"run_id"`
	Score        float64   `json:"score"`
	BaseStrategy Strategy  `json:"base_strategy"`
	NextStrategy Strategy  `json:"next_strategy"`
	Exploration  bool      `json:"exploration"`
	PlanSteps    int       `json:"plan_steps"`
	Timestamp    time.Time `json:"timestamp"`
}
