package policy

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/monitoring"
	"adaptive-etl-service/service/notifier"
	"adaptive-etl-service/service/policy_store"
	"adaptive-etl-service/service/scorer"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"
)

// ReportSource 质量报告来源
type ReportSource interface {
	LoadQualityReport(runID string) (*models.QualityReport, error)
}

// Decision 一次策略演化的结果
type Decision struct {
	RunID        string          `json:"run_id"`
	Score        float64         `json:"score"`
	BaseStrategy models.Strategy `json:"base_strategy"`
	NextStrategy models.Strategy `json:"next_strategy"`
	Exploration  bool            `json:"exploration"`
	Plan         *models.Plan    `json:"plan"`
	DecidedAt    time.Time       `json:"decided_at"`
}

// Engine 自适应策略引擎
type Engine struct {
	store    *policy_store.Store
	reports  ReportSource
	notifier *notifier.Notifier
	decider  ExplorationDecider
	now      func() time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithNotifier 设置决策通知器
func WithNotifier(n *notifier.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithDecider 替换探索决策器
func WithDecider(d ExplorationDecider) Option {
	return func(e *Engine) { e.decider = d }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine 创建策略引擎
func NewEngine(store *policy_store.Store, reports ReportSource, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		reports: reports,
		decider: NewCharSumDecider(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store 返回策略存储
func (e *Engine) Store() *policy_store.Store {
	return e.store
}

// Evolve 根据运行的质量报告选择下一次的填充策略并生成下一份计划
// report 为 nil 时从运行产物中读取；报告缺失时返回 *models.MissingReportError 且不做任何写入
func (e *Engine) Evolve(ctx context.Context, runID string, report *models.QualityReport) (*Decision, error) {
	if err := models.ValidateRunID(runID); err != nil {
		return nil, err
	}

	if report == nil {
		loaded, err := e.reports.LoadQualityReport(runID)
		if err != nil {
			e.recordFailure(err)
			return nil, err
		}
		report = loaded
	}

	score := scorer.Reward(report)
	base := BaseStrategy(score)
	next, exploration := Decide(e.decider, runID, base)

	var decision *Decision
	err := e.store.WithLock(ctx, func() error {
		last, err := e.store.LastPlan(ctx)
		if err != nil {
			return err
		}

		var plan *models.Plan
		if last != nil {
			plan = MutatePlan(last, next)
		} else {
			plan = TemplatePlan(runID, next)
		}
		if err := plan.Validate(); err != nil {
			return err
		}

		now := e.now().UTC()
		scoreCopy := score
		transition := policy_store.Transition{
			State: models.PolicyState{
				LastRunID:    runID,
				LastScore:    &scoreCopy,
				NextStrategy: next,
				Exploration:  exploration,
				UpdatedAt:    &now,
			},
			Entry: models.HistoryEntry{
				RunID:        runID,
				Score:        score,
				NextStrategy: next,
				Exploration:  exploration,
				Timestamp:    now,
			},
			Plan: plan,
		}
		if err := e.store.Commit(ctx, transition); err != nil {
			return err
		}

		decision = &Decision{
			RunID:        runID,
			Score:        score,
			BaseStrategy: base,
			NextStrategy: next,
			Exploration:  exploration,
			Plan:         plan,
			DecidedAt:    now,
		}
		return nil
	})
	if err != nil {
		e.recordFailure(err)
		return nil, err
	}

	monitoring.PolicyDecisions.WithLabelValues(string(next), strconv.FormatBool(exploration)).Inc()
	monitoring.RewardObserved.Observe(score)

	slog.Info("策略演化完成",
		"run_id", runID,
		"score", score,
		"base_strategy", base,
		"next_strategy", next,
		"exploration", exploration)

	if e.notifier.Len() > 0 {
		_ = e.notifier.Notify(ctx, &models.PolicyDecisionEvent{
			RunID:        runID,
			Score:        score,
			BaseStrategy: base,
			NextStrategy: next,
			Exploration:  exploration,
			PlanSteps:    len(decision.Plan.Steps),
			Timestamp:    decision.DecidedAt,
		})
	}

	return decision, nil
}

func (e *Engine) recordFailure(err error) {
	var (
		missing     *models.MissingReportError
		invalid     *models.InvalidPlanError
		unavailable *models.StoreUnavailableError
	)

	reason := "other"
	switch {
	case errors.As(err, &missing):
		reason = "missing_report"
	case errors.As(err, &invalid):
		reason = "invalid_plan"
	case errors.As(err, &unavailable):
		reason = "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	}

	monitoring.PolicyFailures.WithLabelValues(reason).Inc()
	slog.Error("策略演化失败", "reason", reason, "error", err)
}
