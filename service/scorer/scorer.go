/*
 * @module service/scorer/scorer
 * @description 质量评分器，计算基于数据形状的 quality_score 与策略引擎使用的 reward
 * @architecture 分层架构 - 纯函数工具层
 * @documentReference dev_docs/requirements.md#2.3
 * @stateFlow 行数/列数/空值/重复 -> 空值密度 -> 质量分 / 奖励值
 * @rules 两种分数是不同的量，不可互换；退化输入(0行/0列)得到满分，任何输入都不报错
 * @dependencies math, service/models
 * @refs service/evaluator, service/policy
 */

package scorer

import (
	"adaptive-etl-service/service/models"
	"math"
)

const (
	// WarningThreshold 低于该质量分时评估状态为 warning
	WarningThreshold = 0.7

	nullWeight      = 0.6
	duplicateWeight = 0.4
)

// NullDensity 空值密度 = nulls / max(rows*cols, 1)，保留4位小数
func NullDensity(rows, cols, nulls int) float64 {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	if nulls <= 0 {
		return 0
	}
	cells := rows * cols
	if cells < 1 {
		cells = 1
	}
	density := Round(float64(nulls)/float64(cells), 4)
	return clamp01(density)
}

// QualityScore 基于空值密度的质量分，保留3位小数
func QualityScore(nullDensity float64) float64 {
	return Round(math.Max(0, 1-nullDensity), 3)
}

// Status 根据质量分给出评估状态
func Status(qualityScore float64) models.ReportStatus {
	if qualityScore < WarningThreshold {
		return models.ReportStatusWarning
	}
	return models.ReportStatusSuccess
}

// Evaluate 生成评估报告中的计分字段
func Evaluate(runID string, rows, cols, nulls int) models.EvaluationReport {
	density := NullDensity(rows, cols, nulls)
	score := QualityScore(density)
	return models.EvaluationReport{
		RunID:        runID,
		Rows:         rows,
		Columns:      cols,
		NullCount:    nulls,
		NullDensity:  density,
		QualityScore: score,
		Status:       Status(score),
	}
}

// Reward 策略引擎的输入分数
// 报告自带 reward 时直接使用(截断到[0,1])，否则按空值率与重复率回退计算
func Reward(report *models.QualityReport) float64 {
	if report == nil {
		return FallbackReward(nil)
	}
	if report.Reward != nil && !math.IsNaN(*report.Reward) {
		return clamp01(*report.Reward)
	}
	return FallbackReward(report)
}

// FallbackReward = max(0, 1 - (0.6*null_rate + 0.4*dup_rate))
func FallbackReward(report *models.QualityReport) float64 {
	if report == nil {
		return 1
	}

	rows := report.Rows
	if rows < 1 {
		rows = 1
	}

	nullRate := 0.0
	if len(report.NullCounts) > 0 {
		total := 0
		for _, n := range report.NullCounts {
			if n > 0 {
				total += n
			}
		}
		nullRate = float64(total) / float64(rows*len(report.NullCounts))
	} else if report.NullCount != nil && *report.NullCount > 0 {
		cols := report.Columns
		if cols < 1 {
			cols = 1
		}
		nullRate = float64(*report.NullCount) / float64(rows*cols)
	}

	dupRate := 0.0
	if report.DuplicateRows > 0 {
		dupRate = float64(report.DuplicateRows) / float64(rows)
	}

	return clamp01(1 - (nullWeight*nullRate + duplicateWeight*dupRate))
}

// Round 按小数位四舍五入
func Round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
