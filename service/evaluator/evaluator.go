package evaluator

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/monitoring"
	"adaptive-etl-service/service/scorer"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

var (
	// ErrOutputMissing 运行目录下没有 output.csv
	ErrOutputMissing = errors.New("output.csv 不存在")
	// ErrAlreadyEvaluated 运行已有质量报告，报告写入后不可变
	ErrAlreadyEvaluated = errors.New("运行已评估")
)

// Result 评估结果
type Result struct {
	Evaluation *models.EvaluationReport `json:"evaluation"`
	Quality    *models.QualityReport    `json:"quality_report"`
}

// Service 评估服务
type Service struct {
	runs *artifact.RunStore
	now  func() time.Time
}

// NewService 创建评估服务
func NewService(runs *artifact.RunStore) *Service {
	return &Service{runs: runs, now: time.Now}
}

// Evaluate 评估运行输出，写入 evaluation.json 与 quality_report.json
// quality_report.json 最后写入，已存在时返回 ErrAlreadyEvaluated
func (s *Service) Evaluate(ctx context.Context, runID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	evaluated, err := s.runs.Exists(runID, artifact.QualityReportFile)
	if err != nil {
		return nil, err
	}
	if evaluated {
		return nil, fmt.Errorf("%s: %w", runID, ErrAlreadyEvaluated)
	}

	outputPath, err := s.runs.Path(runID, artifact.OutputFile)
	if err != nil {
		return nil, err
	}

	metrics, err := ComputeFile(outputPath)
	if errors.Is(err, fs.ErrNotExist) {
		monitoring.Evaluations.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%s: %w", outputPath, ErrOutputMissing)
	}
	if err != nil {
		monitoring.Evaluations.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("计算输出指标失败: %w", err)
	}

	evaluation := scorer.Evaluate(runID, metrics.Rows, len(metrics.Columns), metrics.NullCount)
	evaluation.EvaluatedAt = s.now().UTC()

	nullCount := metrics.NullCount
	quality := &models.QualityReport{
		RunID:         runID,
		Rows:          metrics.Rows,
		Columns:       len(metrics.Columns),
		NullCount:     &nullCount,
		NullCounts:    metrics.NullCounts,
		DuplicateRows: metrics.DuplicateRows,
		SchemaTypes:   metrics.SchemaTypes,
	}
	reward := scorer.FallbackReward(quality)
	quality.Reward = &reward

	if _, err := s.runs.SaveEvaluation(runID, &evaluation); err != nil {
		return nil, err
	}
	if _, err := s.runs.SaveQualityReport(runID, quality); err != nil {
		return nil, err
	}

	monitoring.Evaluations.WithLabelValues(string(evaluation.Status)).Inc()
	slog.Info("运行评估完成",
		"run_id", runID,
		"rows", evaluation.Rows,
		"columns", evaluation.Columns,
		"null_density", evaluation.NullDensity,
		"quality_score", evaluation.QualityScore,
		"reward", reward,
		"status", evaluation.Status)

	return &Result{Evaluation: &evaluation, Quality: quality}, nil
}

// GetEvaluation 读取已有的评估报告
func (s *Service) GetEvaluation(runID string) (*models.EvaluationReport, error) {
	return s.runs.LoadEvaluation(runID)
}
