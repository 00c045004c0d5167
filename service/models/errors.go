/*
 * @module service/models/errors
 * @description 反馈闭环的错误分类：非法计划、缺失报告、状态损坏、存储不可用
 * @architecture DDD领域驱动设计 - 领域错误
 * @documentReference dev_docs/requirements.md#6
 * @stateFlow 错误产生 -> errors.As 分类 -> 控制器映射HTTP状态码
 * @rules 数据完整性错误上抛给调用方；状态损坏在本地吸收并记录日志
 * @dependencies fmt
 * @refs service/policy, service/policy_store, api/controllers
 */

package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidRunID run_id 为空、包含路径字符或控制字符
var ErrInvalidRunID = errors.New("非法的 run_id")

// ValidateRunID 校验 run_id：非空，不以 . 开头，不含路径分隔符与控制字符(含 CR/LF)
func ValidateRunID(runID string) error {
	if runID == "" || strings.HasPrefix(runID, ".") || strings.ContainsAny(runID, `/\`) ||
		strings.IndexFunc(runID, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

// InvalidPlanError 计划不合法
type InvalidPlanError struct {
	StepID string
	Reason string
}

func (e *InvalidPlanError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("非法计划: 步骤 %q: %s", e.StepID, e.Reason)
	}
	return "非法计划: " + e.Reason
}

// MissingReportError 指定运行的质量报告不存在
type MissingReportError struct {
	RunID string
	Path  string
}

func (e *MissingReportError) Error() string {
	return fmt.Sprintf("运行 %s 的质量报告不存在: %s", e.RunID, e.Path)
}

// CorruptStateError 策略状态或历史无法读取/解析
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("策略存储键 %s 已损坏: %v", e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// StoreUnavailableError 持久化存储不可达
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("存储不可用(%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
