package policy

import (
	"adaptive-etl-service/service/models"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseStrategy(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Strategy
	}{
		{0, models.StrategyMean},
		{0.3, models.StrategyMean},
		{0.4499, models.StrategyMean},
		{0.45, models.StrategyMode},
		{0.6999, models.StrategyMode},
		{0.7, models.StrategyNone},
		{0.9, models.StrategyNone},
		{1, models.StrategyNone},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("分数%v", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, BaseStrategy(tt.score))
		})
	}
}

func TestAlternative(t *testing.T) {
	assert.Equal(t, models.StrategyMode, Alternative(models.StrategyMean))
	assert.Equal(t, models.StrategyMean, Alternative(models.StrategyMode))
	assert.Equal(t, models.StrategyMode, Alternative(models.StrategyNone))
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 6, Entropy("abc", 8))
	assert.Equal(t, 1, Entropy("a", 8))
	assert.Equal(t, 0, Entropy("h", 8))
	assert.Equal(t, 0, Entropy("", 8))
	// 按 Unicode 码点求和
	assert.Equal(t, int('数')%8, Entropy("数", 8))
}

func TestDecide(t *testing.T) {
	decider := NewCharSumDecider()

	t.Run("不探索保留基础策略", func(t *testing.T) {
		s, explored := Decide(decider, "abc", models.StrategyMean)
		assert.Equal(t, models.StrategyMean, s)
		assert.False(t, explored)
	})

	t.Run("熵为0时探索", func(t *testing.T) {
		s, explored := Decide(decider, "h", models.StrategyNone)
		assert.Equal(t, models.StrategyMode, s)
		assert.True(t, explored)
	})

	t.Run("nil决策器不探索", func(t *testing.T) {
		s, explored := Decide(nil, "h", models.StrategyNone)
		assert.Equal(t, models.StrategyNone, s)
		assert.False(t, explored)
	})

	t.Run("零值模数使用默认值", func(t *testing.T) {
		assert.True(t, CharSumDecider{}.ShouldExplore("h"))
	})
}

func TestExplorationRate(t *testing.T) {
	decider := NewCharSumDecider()
	explored := 0
	total := 8000
	for i := 0; i < total; i++ {
		if decider.ShouldExplore(fmt.Sprintf("run-%d", i)) {
			explored++
		}
	}
	assert.InDelta(t, 1.0/8, float64(explored)/float64(total), 0.02)
}

func TestMutatePlan(t *testing.T) {
	prev := &models.Plan{
		DatasetID:  "profiled",
		Confidence: 0.87,
		Steps: []models.Step{
			models.NewStep("parse_dates", []string{"order_date"}, models.ParseDateParams{Formats: []string{"%Y"}}),
			models.NewStep("impute", []string{"a"}, models.ImputeParams{Strategy: models.StrategyMedian}),
			models.NewStep("dedupe", nil, models.DeduplicateParams{Keys: []string{"id"}}),
		},
	}

	next := MutatePlan(prev, models.StrategyMean)

	assert.Equal(t, models.ImputeParams{Strategy: models.StrategyMean}, next.Steps[1].Params)
	assert.Equal(t, prev.Steps[0], next.Steps[0])
	assert.Equal(t, prev.Steps[2], next.Steps[2])
	assert.Equal(t, prev.DatasetID, next.DatasetID)
	assert.Equal(t, prev.Confidence, next.Confidence)
	// 原计划不被修改
	assert.Equal(t, models.ImputeParams{Strategy: models.StrategyMedian}, prev.Steps[1].Params)
}

func TestTemplatePlan(t *testing.T) {
	plan := TemplatePlan("run-7", models.StrategyMode)
	assert.NoError(t, plan.Validate())
	assert.Equal(t, "run-7-next", plan.DatasetID)
	assert.Equal(t, TemplateConfidence, plan.Confidence)
	assert.Len(t, plan.Steps, 3)
	assert.Equal(t, models.ImputeParams{Strategy: models.StrategyMode}, plan.Steps[1].Params)
}
