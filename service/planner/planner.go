/*
 * @module service/planner/planner
 * @description 计划服务，为新运行生成 run_id、画像样本并在返回前持久化 plan.json
 * @architecture 分层架构 - 应用服务层
 * @documentReference dev_docs/requirements.md#2.2
 * @stateFlow 生成 run_id -> 画像 -> 校验 -> 原子落盘 -> 返回
 * @rules 持久化必须先于返回：调用方即使没收到响应也能按 run_id 取回计划
 * @dependencies github.com/google/uuid, service/profiler, service/artifact
 * @refs api/controllers/plan_controller.go
 */

package planner

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/monitoring"
	"adaptive-etl-service/service/profiler"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Result 计划生成结果
type Result struct {
	RunID    string       `json:"run_id"`
	PlanPath string       `json:"plan_path"`
	Plan     *models.Plan `json:"plan"`
}

// Service 计划服务
type Service struct {
	runs  *artifact.RunStore
	newID func() string
}

// NewService 创建计划服务
func NewService(runs *artifact.RunStore) *Service {
	return &Service{
		runs:  runs,
		newID: func() string { return uuid.New().String() },
	}
}

// ProducePlan 画像样本并持久化计划
func (s *Service) ProducePlan(ctx context.Context, rows []profiler.Row) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan := profiler.Profile(rows)
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	runID := s.newID()
	path, err := s.runs.SavePlan(runID, plan)
	if err != nil {
		return nil, fmt.Errorf("持久化计划失败: %w", err)
	}

	mode := "warm"
	if len(rows) == 0 {
		mode = "cold"
	}
	monitoring.PlansProduced.WithLabelValues(mode).Inc()

	slog.Info("计划已生成",
		"run_id", runID,
		"mode", mode,
		"steps", len(plan.Steps),
		"plan_path", path)

	return &Result{RunID: runID, PlanPath: path, Plan: plan}, nil
}

// GetPlan 按 run_id 读取已持久化的计划
func (s *Service) GetPlan(runID string) (*models.Plan, error) {
	return s.runs.LoadPlan(runID)
}
