/*
 * @module service/models/plan_test
 * @description 清洗计划模型测试：校验规则、JSON 往返与深拷贝
 * @architecture 测试层 - 数据模型验证
 * @documentReference dev_docs/requirements.md#2.1
 * @stateFlow 构造计划 -> 校验/序列化 -> 断言
 * @rules 非法计划必须被拒绝且不做修复
 * @dependencies testing, testify
 * @refs plan.go
 */

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *Plan {
	return &Plan{
		DatasetID:  "profiled",
		Confidence: 0.87,
		Steps: []Step{
			NewStep("parse_dates", []string{"order_date"}, ParseDateParams{Formats: DefaultDateFormats}),
			NewStep("impute", []string{"age", "income"}, ImputeParams{Strategy: StrategyMedian}),
			NewStep("dedupe", nil, DeduplicateParams{Keys: []string{"id"}}),
		},
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Plan)
		wantErr string
	}{
		{name: "合法计划", mutate: func(p *Plan) {}},
		{name: "空步骤", mutate: func(p *Plan) { p.Steps = nil }, wantErr: "至少需要一个步骤"},
		{name: "置信度越界", mutate: func(p *Plan) { p.Confidence = 1.5 }, wantErr: "confidence"},
		{name: "负置信度", mutate: func(p *Plan) { p.Confidence = -0.1 }, wantErr: "confidence"},
		{name: "步骤ID重复", mutate: func(p *Plan) { p.Steps[1].ID = "parse_dates" }, wantErr: "重复"},
		{name: "步骤ID为空", mutate: func(p *Plan) { p.Steps[0].ID = "" }, wantErr: "required"},
		{name: "impute缺少columns", mutate: func(p *Plan) { p.Steps[1].Columns = nil }, wantErr: "columns"},
		{name: "parse_date缺少columns", mutate: func(p *Plan) { p.Steps[0].Columns = nil }, wantErr: "columns"},
		{name: "columns显式为空合法", mutate: func(p *Plan) { p.Steps[1].Columns = []string{} }},
		{name: "缺少参数", mutate: func(p *Plan) { p.Steps[2].Params = nil }, wantErr: "参数"},
		{name: "参数与操作不匹配", mutate: func(p *Plan) { p.Steps[2].Params = ImputeParams{Strategy: StrategyMean} }, wantErr: "不匹配"},
		{name: "未知填充策略", mutate: func(p *Plan) { p.Steps[1].Params = ImputeParams{Strategy: "max"} }, wantErr: "填充策略"},
		{name: "未知操作类型", mutate: func(p *Plan) { p.Steps[2].Op = "drop" }, wantErr: "未知的操作类型"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := samplePlan()
			tt.mutate(plan)

			err := plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var invalid *InvalidPlanError
			assert.ErrorAs(t, err, &invalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlanValidateNil(t *testing.T) {
	var plan *Plan
	var invalid *InvalidPlanError
	assert.ErrorAs(t, plan.Validate(), &invalid)
}

func TestPlanJSONRoundTrip(t *testing.T) {
	plan := samplePlan()

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var decoded Plan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, plan, &decoded)
	assert.NoError(t, decoded.Validate())

	t.Run("deduplicate不输出columns", func(t *testing.T) {
		var raw struct {
			Steps []map[string]interface{} `json:"steps"`
		}
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Len(t, raw.Steps, 3)
		assert.Equal(t, "deduplicate", raw.Steps[2]["op"])
		_, hasColumns := raw.Steps[2]["columns"]
		assert.False(t, hasColumns)
		_, hasColumns = raw.Steps[1]["columns"]
		assert.True(t, hasColumns)
	})
}

func TestStepUnmarshal(t *testing.T) {
	t.Run("未知操作类型在解码时被拒绝", func(t *testing.T) {
		var step Step
		err := json.Unmarshal([]byte(`{"id":"x","op":"explode","params":{}}`), &step)
		var invalid *InvalidPlanError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "x", invalid.StepID)
	})

	t.Run("columns为空数组保留为空切片", func(t *testing.T) {
		var step Step
		require.NoError(t, json.Unmarshal([]byte(`{"id":"d","op":"deduplicate","columns":[],"params":{"keys":[]}}`), &step))
		assert.NotNil(t, step.Columns)
		assert.Empty(t, step.Columns)
		assert.Equal(t, DeduplicateParams{Keys: []string{}}, step.Params)
	})

	t.Run("缺少params时参数为nil", func(t *testing.T) {
		var step Step
		require.NoError(t, json.Unmarshal([]byte(`{"id":"i","op":"impute","columns":["a"]}`), &step))
		assert.Nil(t, step.Params)
		assert.Error(t, (&Plan{Confidence: 0.5, Steps: []Step{step}}).Validate())
	})

	t.Run("参数类型错误", func(t *testing.T) {
		var step Step
		err := json.Unmarshal([]byte(`{"id":"i","op":"impute","columns":["a"],"params":{"strategy":3}}`), &step)
		var invalid *InvalidPlanError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestPlanClone(t *testing.T) {
	plan := samplePlan()
	clone := plan.Clone()
	require.Equal(t, plan, clone)

	clone.Steps[0].Columns[0] = "changed"
	clone.Steps[0].Params.(ParseDateParams).Formats[0] = "%Y"
	clone.Steps[1].Params = ImputeParams{Strategy: StrategyMode}

	assert.Equal(t, "order_date", plan.Steps[0].Columns[0])
	assert.Equal(t, "%Y-%m-%d", plan.Steps[0].Params.(ParseDateParams).Formats[0])
	assert.Equal(t, ImputeParams{Strategy: StrategyMedian}, plan.Steps[1].Params)
	assert.Nil(t, (*Plan)(nil).Clone())
}
