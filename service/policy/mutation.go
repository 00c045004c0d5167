package policy

import "adaptive-etl-service/service/models"

// TemplateConfidence 无历史计划时模板计划的置信度
const TemplateConfidence = 0.6

// MutatePlan 复制上一份计划并覆盖所有 impute 步骤的填充策略，其余步骤保持不变
func MutatePlan(prev *models.Plan, strategy models.Strategy) *models.Plan {
	next := prev.Clone()
	for i, step := range next.Steps {
		if step.Op == models.OpImpute {
			next.Steps[i].Params = models.ImputeParams{Strategy: strategy}
		}
	}
	return next
}

// TemplatePlan 保守的模板计划
func TemplatePlan(runID string, strategy models.Strategy) *models.Plan {
	return &models.Plan{
		DatasetID:  runID + "-next",
		Confidence: TemplateConfidence,
		Steps: []models.Step{
			models.NewStep("parse_dates", []string{}, models.ParseDateParams{
				Formats: append([]string(nil), models.DefaultDateFormats...),
			}),
			models.NewStep("impute", []string{}, models.ImputeParams{Strategy: strategy}),
			models.NewStep("dedupe", nil, models.DeduplicateParams{Keys: []string{}}),
		},
	}
}
