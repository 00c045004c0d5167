/*
 * @module service/models/plan
 * @description 清洗计划模型，定义有序清洗步骤、步骤参数与置信度
 * @architecture DDD领域驱动设计 - 值对象模型
 * @documentReference dev_docs/requirements.md#2.1
 * @stateFlow 画像生成 -> 校验 -> 持久化 plan.json -> 执行器消费 -> 策略引擎变异
 * @rules 步骤ID在计划内唯一；op 为封闭枚举，每种 op 携带自己的强类型参数；序列化往返一致
 * @dependencies encoding/json, github.com/go-playground/validator/v10
 * @refs service/profiler, service/policy
 */

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// OpKind 清洗操作类型
type OpKind string

const (
	OpParseDate   OpKind = "parse_date"
	OpImpute      OpKind = "impute"
	OpDeduplicate OpKind = "deduplicate"
)

// Valid 判断操作类型是否为已知类型
func (k OpKind) Valid() bool {
	switch k {
	case OpParseDate, OpImpute, OpDeduplicate:
		return true
	}
	return false
}

// requiresColumns 该操作是否必须声明 columns 字段
func (k OpKind) requiresColumns() bool {
	return k == OpParseDate || k == OpImpute
}

// Strategy 缺失值填充策略
type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
	StrategyMode   Strategy = "mode"
	StrategyNone   Strategy = "none"
)

// Valid 判断填充策略是否合法
func (s Strategy) Valid() bool {
	switch s {
	case StrategyMean, StrategyMedian, StrategyMode, StrategyNone:
		return true
	}
	return false
}

// DefaultDateFormats 默认日期解析格式
var DefaultDateFormats = []string{"%Y-%m-%d", "%d-%m-%Y"}

// StepParams 步骤参数，每种操作类型对应一个实现
type StepParams interface {
	Op() OpKind
	clone() StepParams
}

// ParseDateParams 日期解析参数
type ParseDateParams struct {
	Formats []string `json:"formats"`
}

func (p ParseDateParams) Op() OpKind { return OpParseDate }

func (p ParseDateParams) clone() StepParams {
	return ParseDateParams{Formats: cloneStrings(p.Formats)}
}

// ImputeParams 缺失值填充参数
type ImputeParams struct {
	Strategy Strategy `json:"strategy"`
}

func (p ImputeParams) Op() OpKind { return OpImpute }

func (p ImputeParams) clone() StepParams { return p }

// DeduplicateParams 去重参数
type DeduplicateParams struct {
	Keys []string `json:"keys"`
}

func (p DeduplicateParams) Op() OpKind { return OpDeduplicate }

func (p DeduplicateParams) clone() StepParams {
	return DeduplicateParams{Keys: cloneStrings(p.Keys)}
}

// Step 单个清洗步骤
// Columns 为 nil 表示字段缺失，空切片表示显式声明为空
type Step struct {
	ID      string     `json:"id" validate:"required"`
	Op      OpKind     `json:"op" validate:"required"`
	Columns []string   `json:"columns"`
	Params  StepParams `json:"params"`
}

// NewStep 根据参数类型创建步骤，操作类型由参数决定
func NewStep(id string, columns []string, params StepParams) Step {
	step := Step{ID: id, Columns: columns, Params: params}
	if params != nil {
		step.Op = params.Op()
	}
	return step
}

// Clone 深拷贝步骤
func (s Step) Clone() Step {
	out := Step{ID: s.ID, Op: s.Op, Columns: cloneStrings(s.Columns)}
	if s.Params != nil {
		out.Params = s.Params.clone()
	}
	return out
}

// stepWire 步骤的序列化形态
type stepWire struct {
	ID      string          `json:"id"`
	Op      OpKind          `json:"op"`
	Columns *[]string       `json:"columns,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MarshalJSON 实现 json.Marshaler
func (s Step) MarshalJSON() ([]byte, error) {
	wire := stepWire{ID: s.ID, Op: s.Op}
	if s.Columns != nil {
		cols := s.Columns
		wire.Columns = &cols
	}
	if s.Params != nil {
		raw, err := json.Marshal(s.Params)
		if err != nil {
			return nil, fmt.Errorf("序列化步骤参数失败: %w", err)
		}
		wire.Params = raw
	}
	return json.Marshal(wire)
}

// UnmarshalJSON 实现 json.Unmarshaler，未知操作类型在解码阶段即被拒绝
func (s *Step) UnmarshalJSON(data []byte) error {
	var wire stepWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !wire.Op.Valid() {
		return &InvalidPlanError{StepID: wire.ID, Reason: fmt.Sprintf("未知的操作类型: %q", wire.Op)}
	}

	step := Step{ID: wire.ID, Op: wire.Op}
	if wire.Columns != nil {
		step.Columns = *wire.Columns
		if step.Columns == nil {
			step.Columns = []string{}
		}
	}

	if len(wire.Params) > 0 && string(wire.Params) != "null" {
		params, err := decodeParams(wire.Op, wire.Params)
		if err != nil {
			return &InvalidPlanError{StepID: wire.ID, Reason: fmt.Sprintf("步骤参数解析失败: %v", err)}
		}
		step.Params = params
	}

	*s = step
	return nil
}

func decodeParams(op OpKind, raw json.RawMessage) (StepParams, error) {
	switch op {
	case OpParseDate:
		var p ParseDateParams
		err := json.Unmarshal(raw, &p)
		return p, err
	case OpImpute:
		var p ImputeParams
		err := json.Unmarshal(raw, &p)
		return p, err
	case OpDeduplicate:
		var p DeduplicateParams
		err := json.Unmarshal(raw, &p)
		return p, err
	default:
		return nil, fmt.Errorf("未知的操作类型: %q", op)
	}
}

// Plan 清洗计划
type Plan struct {
	DatasetID  string  `json:"dataset_id"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Steps      []Step  `json:"steps" validate:"min=1,unique=ID,dive"`
}

// Clone 深拷贝计划
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{DatasetID: p.DatasetID, Confidence: p.Confidence}
	if p.Steps != nil {
		out.Steps = make([]Step, len(p.Steps))
		for i, step := range p.Steps {
			out.Steps[i] = step.Clone()
		}
	}
	return out
}

var planValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验计划，失败时返回 *InvalidPlanError，不做任何修复
func (p *Plan) Validate() error {
	if p == nil {
		return &InvalidPlanError{Reason: "计划为空"}
	}

	if err := planValidator.Struct(p); err != nil {
		return invalidPlanFromValidator(err)
	}

	for _, step := range p.Steps {
		if err := step.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s Step) validate() error {
	if !s.Op.Valid() {
		return &InvalidPlanError{StepID: s.ID, Reason: fmt.Sprintf("未知的操作类型: %q", s.Op)}
	}
	if s.Op.requiresColumns() && s.Columns == nil {
		return &InvalidPlanError{StepID: s.ID, Reason: fmt.Sprintf("%s 操作缺少 columns 字段", s.Op)}
	}
	if s.Params == nil {
		return &InvalidPlanError{StepID: s.ID, Reason: "缺少步骤参数"}
	}
	if s.Params.Op() != s.Op {
		return &InvalidPlanError{StepID: s.ID, Reason: fmt.Sprintf("参数类型 %s 与操作类型 %s 不匹配", s.Params.Op(), s.Op)}
	}
	if p, ok := s.Params.(ImputeParams); ok && !p.Strategy.Valid() {
		return &InvalidPlanError{StepID: s.ID, Reason: fmt.Sprintf("未知的填充策略: %q", p.Strategy)}
	}
	return nil
}

func invalidPlanFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InvalidPlanError{Reason: err.Error()}
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "unique":
			reasons = append(reasons, "步骤ID重复")
		case "min":
			reasons = append(reasons, "计划至少需要一个步骤")
		case "gte", "lte":
			reasons = append(reasons, fmt.Sprintf("confidence 必须位于 [0,1]，实际为 %v", fe.Value()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s 校验失败: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return &InvalidPlanError{Reason: strings.Join(reasons, "; ")}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
