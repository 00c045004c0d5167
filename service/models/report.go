/*
 * @module service/models/report
 * @description 质量报告模型：评估报告(evaluation.json)与策略输入报告(quality_report.json)
 * @architecture DDD领域驱动设计 - 值对象模型
 * @documentReference dev_docs/requirements.md#3
 * @stateFlow 评估器写入 -> 策略引擎读取
 * @rules 报告按 run_id 分区且写入后不可变；质量报告解码宽松，缺失字段按零值处理
 * @dependencies encoding/json, github.com/spf13/cast
 * @refs service/evaluator, service/scorer, service/policy
 */

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// ReportStatus 评估状态
type ReportStatus string

const (
	ReportStatusSuccess ReportStatus = "success"
	ReportStatusWarning ReportStatus = "warning"
)

// EvaluationReport 基于数据形状的评估报告
type EvaluationReport struct {
	RunID        string       `json:"run_id"`
	Rows         int          `json:"rows"`
	Columns      int          `json:"columns"`
	NullCount    int          `json:"null_count"`
	NullDensity  float64      `json:"null_density"`
	QualityScore float64      `json:"quality_score"`
	Status       ReportStatus `json:"status"`
	EvaluatedAt  time.Time    `json:"evaluated_at"`
}

// QualityReport 策略引擎消费的轻量质量报告
// Reward 为 nil 时由评分器按空值率和重复率回退计算
type QualityReport struct {
	RunID         string            `json:"run_id,omitempty"`
	Rows          int               `json:"rows"`
	Columns       int               `json:"columns,omitempty"`
	NullCount     *int              `json:"null_count,omitempty"`
	NullCounts    map[string]int    `json:"null_counts,omitempty"`
	DuplicateRows int               `json:"duplicate_rows"`
	SchemaTypes   map[string]string `json:"schema_types,omitempty"`
	Reward        *float64          `json:"reward,omitempty"`
}

// UnmarshalJSON 宽松解码，兼容字符串形式的数字以及 null 值
func (r *QualityReport) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = QualityReport{}
		return nil
	}

	out := QualityReport{
		RunID:         cast.ToString(raw["run_id"]),
		Rows:          cast.ToInt(raw["rows"]),
		Columns:       cast.ToInt(raw["columns"]),
		DuplicateRows: cast.ToInt(raw["duplicate_rows"]),
	}

	if v, ok := raw["null_count"]; ok && v != nil {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("null_count 字段格式错误: %w", err)
		}
		out.NullCount = &n
	}

	if v, ok := raw["null_counts"]; ok && v != nil {
		counts, err := cast.ToStringMapE(v)
		if err != nil {
			return fmt.Errorf("null_counts 字段格式错误: %w", err)
		}
		out.NullCounts = make(map[string]int, len(counts))
		for col, c := range counts {
			out.NullCounts[col] = cast.ToInt(c)
		}
	}

	if v, ok := raw["schema_types"]; ok && v != nil {
		out.SchemaTypes = cast.ToStringMapString(v)
	}

	if v, ok := raw["reward"]; ok && v != nil {
		reward, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("reward 字段格式错误: %w", err)
		}
		out.Reward = &reward
	}

	*r = out
	return nil
}
