/*
 * @module service/policy/strategy
 * @description 策略分段与探索决策：奖励值 -> 基础填充策略 -> 可选的探索替换
 * @architecture 策略模式 - 可替换的探索决策器
 * @documentReference dev_docs/requirements.md#2.4
 * @stateFlow 奖励值 -> 分段得到基础策略 -> 探索决策器判定 -> 最终策略
 * @rules 分段是对[0,1]的完整且不重叠划分；探索只依赖 run_id，相同输入结果相同
 * @dependencies service/models
 * @refs service/policy/engine.go
 */

package policy

import "adaptive-etl-service/service/models"

const (
	// ModeThreshold 低于该值使用 mean
	ModeThreshold = 0.45
	// NoneThreshold 低于该值使用 mode，否则不再填充
	NoneThreshold = 0.7

	// DefaultExplorationModulus 期望探索率为 1/8
	DefaultExplorationModulus = 8
)

// BaseStrategy 按奖励值分段选择基础策略
func BaseStrategy(score float64) models.Strategy {
	switch {
	case score < ModeThreshold:
		return models.StrategyMean
	case score < NoneThreshold:
		return models.StrategyMode
	default:
		return models.StrategyNone
	}
}

// Alternative 探索时的替代策略：mean->mode, mode->mean, none->mode
func Alternative(s models.Strategy) models.Strategy {
	switch s {
	case models.StrategyMean:
		return models.StrategyMode
	case models.StrategyMode:
		return models.StrategyMean
	case models.StrategyNone:
		return models.StrategyMode
	default:
		return s
	}
}

// ExplorationDecider 探索决策器
type ExplorationDecider interface {
	ShouldExplore(runID string) bool
}

// CharSumDecider 以 run_id 字符码之和取模作为熵，熵为0时探索
type CharSumDecider struct {
	Modulus int
}

// NewCharSumDecider 创建默认探索决策器
func NewCharSumDecider() CharSumDecider {
	return CharSumDecider{Modulus: DefaultExplorationModulus}
}

// ShouldExplore 实现 ExplorationDecider
func (d CharSumDecider) ShouldExplore(runID string) bool {
	return Entropy(runID, d.modulus()) == 0
}

func (d CharSumDecider) modulus() int {
	if d.Modulus <= 0 {
		return DefaultExplorationModulus
	}
	return d.Modulus
}

// Entropy = (Σ 字符码) mod modulus
func Entropy(runID string, modulus int) int {
	sum := 0
	for _, r := range runID {
		sum += int(r)
	}
	return sum % modulus
}

// Decide 应用探索决策，返回最终策略以及是否发生探索
func Decide(decider ExplorationDecider, runID string, base models.Strategy) (models.Strategy, bool) {
	if decider != nil && decider.ShouldExplore(runID) {
		return Alternative(base), true
	}
	return base, false
}
