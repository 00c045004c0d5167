/*
 * @module service/profiler/profiler
 * @description 数据画像器，扫描样本行推导初始清洗计划
 * @architecture 分层架构 - 领域服务层
 * @documentReference dev_docs/requirements.md#2.2
 * @stateFlow 样本行 -> 列发现 -> 日期列/空值列识别 -> 计划生成
 * @rules 无样本时输出固定兜底计划；步骤顺序固定为 日期解析 -> 填充 -> 去重
 * @dependencies service/models
 * @refs service/planner
 */

package profiler

import (
	"adaptive-etl-service/service/models"
	"math"
	"sort"
	"strings"
)

const (
	// FallbackConfidence 冷启动计划的置信度
	FallbackConfidence = 0.75
	// ProfiledConfidence 画像计划的置信度
	ProfiledConfidence = 0.87

	fallbackDateColumn = "order_date"
	dedupKey           = "id"
)

// Row 样本行，键缺失视为空值
type Row map[string]interface{}

// Profile 根据样本行生成清洗计划
func Profile(rows []Row) *models.Plan {
	if len(rows) == 0 {
		return FallbackPlan()
	}

	columns := discoverColumns(rows)

	var dateColumns, imputeColumns []string
	for _, col := range columns {
		if strings.Contains(strings.ToLower(col), "date") {
			dateColumns = append(dateColumns, col)
		}
		if hasNull(rows, col) {
			imputeColumns = append(imputeColumns, col)
		}
	}

	steps := make([]models.Step, 0, 3)
	if len(dateColumns) > 0 {
		steps = append(steps, models.NewStep("parse_dates", dateColumns, models.ParseDateParams{
			Formats: append([]string(nil), models.DefaultDateFormats...),
		}))
	}
	if len(imputeColumns) > 0 {
		steps = append(steps, models.NewStep("impute", imputeColumns, models.ImputeParams{
			Strategy: models.StrategyMedian,
		}))
	}
	steps = append(steps, models.NewStep("dedupe", nil, models.DeduplicateParams{
		Keys: []string{dedupKey},
	}))

	return &models.Plan{
		DatasetID:  "profiled",
		Confidence: ProfiledConfidence,
		Steps:      steps,
	}
}

// FallbackPlan 冷启动兜底计划
func FallbackPlan() *models.Plan {
	return &models.Plan{
		DatasetID:  "auto",
		Confidence: FallbackConfidence,
		Steps: []models.Step{
			models.NewStep("auto_parse_dates", []string{fallbackDateColumn}, models.ParseDateParams{
				Formats: append([]string(nil), models.DefaultDateFormats...),
			}),
		},
	}
}

// discoverColumns 按首次出现顺序收集所有列名
func discoverColumns(rows []Row) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		// map 遍历无序，同一行内新出现的列按字典序追加
		var fresh []string
		for key := range row {
			if _, ok := seen[key]; !ok {
				fresh = append(fresh, key)
			}
		}
		sort.Strings(fresh)
		for _, key := range fresh {
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

func hasNull(rows []Row, col string) bool {
	for _, row := range rows {
		v, ok := row[col]
		if !ok || isNull(v) {
			return true
		}
	}
	return false
}

func isNull(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}
