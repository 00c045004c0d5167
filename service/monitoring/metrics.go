/*
 * @module service/monitoring/metrics
 * @description 反馈闭环的 Prometheus 指标：计划生成、策略决策、奖励分布、评估与失败计数
 * @architecture 监控层 - 指标采集
 * @documentReference dev_docs/requirements.md#11.5
 * @stateFlow 业务事件 -> 指标累加 -> /metrics 暴露
 * @rules 指标只记录已完成的事件，失败按原因分类
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/policy, service/planner, service/evaluator
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlansProduced 已生成计划数，mode=cold|warm
	PlansProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_etl",
		Name:      "plans_produced_total",
		Help:      "Number of cleaning plans produced by the profiler.",
	}, []string{"mode"})

	// PolicyDecisions 已提交的策略决策数
	PolicyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_etl",
		Name:      "policy_decisions_total",
		Help:      "Number of committed policy decisions by strategy and exploration.",
	}, []string{"strategy", "exploration"})

	// PolicyFailures 策略演化失败数
	PolicyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_etl",
		Name:      "policy_failures_total",
		Help:      "Number of failed policy evolutions by reason.",
	}, []string{"reason"})

	// RewardObserved 策略输入奖励分布
	RewardObserved = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adaptive_etl",
		Name:      "policy_reward",
		Help:      "Distribution of rewards consumed by the policy engine.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.45, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	// Evaluations 评估次数，status=success|warning|failed
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_etl",
		Name:      "evaluations_total",
		Help:      "Number of run evaluations by status.",
	}, []string{"status"})

	// Executions 执行次数，status=success|failed
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_etl",
		Name:      "executions_total",
		Help:      "Number of transform script executions by status.",
	}, []string{"status"})
)
