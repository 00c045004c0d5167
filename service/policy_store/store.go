/*
 * @module service/policy_store/store
 * @description 策略状态存储，按固定逻辑键持久化 state/history/next_plan/last_plan
 * @architecture 仓储模式 - 类型化仓储 + 可替换存储后端
 * @documentReference dev_docs/requirements.md#2.5
 * @stateFlow 加锁 -> 读取状态/历史/上次计划 -> 决策 -> 原子提交 -> 释放锁
 * @rules 存储全局唯一；损坏数据按缺省值处理并记录日志；后端不可达时上抛 StoreUnavailableError
 * @dependencies service/distributed_lock, service/models
 * @refs service/policy
 */

package policy_store

import (
	"adaptive-etl-service/service/distributed_lock"
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Key 策略存储的逻辑键
type Key string

const (
	KeyState    Key = "state"
	KeyHistory  Key = "history"
	KeyNextPlan Key = "next_plan"
	KeyLastPlan Key = "last_plan"
)

const (
	lockName       = "policy_state"
	defaultLockTTL = 30 * time.Second
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("键不存在")

// Backend 存储后端
// Read 在键不存在时返回 ErrNotFound；内容不可读返回 *models.CorruptStateError；
// 后端不可达返回 *models.StoreUnavailableError
type Backend interface {
	Name() string
	Read(ctx context.Context, key Key) ([]byte, error)
	Write(ctx context.Context, key Key, value []byte) error
	// WriteBatch 全部成功或全部不生效
	WriteBatch(ctx context.Context, values map[Key][]byte) error
}

// Transition 一次策略决策需要提交的全部内容
type Transition struct {
	State models.PolicyState
	Entry models.HistoryEntry
	Plan  *models.Plan
}

// Store 类型化策略存储
type Store struct {
	backend  Backend
	executor *distributed_lock.LockExecutor
	lockTTL  time.Duration
}

// NewStore 创建策略存储，lock 为 nil 时使用进程内锁
func NewStore(backend Backend, lock distributed_lock.DistributedLock) *Store {
	if lock == nil {
		lock = distributed_lock.NewLocalLock()
	}
	return &Store{
		backend:  backend,
		executor: distributed_lock.NewLockExecutor(lock),
		lockTTL:  defaultLockTTL,
	}
}

// Backend 返回底层存储后端
func (s *Store) Backend() Backend {
	return s.backend
}

// WithLock 在独占锁内执行 fn，锁不可重入
func (s *Store) WithLock(ctx context.Context, fn func() error) error {
	return s.executor.ExecuteWithLockWait(ctx, lockName, s.lockTTL, fn)
}

// Read 读取原始值，不存在时 found 为 false
func (s *Store) Read(ctx context.Context, key Key) ([]byte, bool, error) {
	data, err := s.backend.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Write 原子替换写入原始值
func (s *Store) Write(ctx context.Context, key Key, value []byte) error {
	return s.backend.Write(ctx, key, value)
}

// State 读取当前策略状态，缺失或损坏时返回默认状态
func (s *Store) State(ctx context.Context) (models.PolicyState, error) {
	var state models.PolicyState
	ok, err := s.load(ctx, KeyState, &state)
	if err != nil || !ok {
		return models.PolicyState{}, err
	}
	return state, nil
}

// History 读取决策历史，缺失或损坏时返回空历史
func (s *Store) History(ctx context.Context) ([]models.HistoryEntry, error) {
	var history []models.HistoryEntry
	ok, err := s.load(ctx, KeyHistory, &history)
	if err != nil {
		return nil, err
	}
	if !ok || history == nil {
		return []models.HistoryEntry{}, nil
	}
	return history, nil
}

// LastPlan 读取上次变异后的计划，缺失或不合法时返回 nil
func (s *Store) LastPlan(ctx context.Context) (*models.Plan, error) {
	return s.loadPlan(ctx, KeyLastPlan)
}

// NextPlan 读取供下一次运行使用的计划
func (s *Store) NextPlan(ctx context.Context) (*models.Plan, error) {
	return s.loadPlan(ctx, KeyNextPlan)
}

// Append 追加一条历史记录，调用方需持有锁
func (s *Store) Append(ctx context.Context, entry models.HistoryEntry) error {
	history, err := s.History(ctx)
	if err != nil {
		return err
	}
	data, err := encode(append(history, entry))
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, KeyHistory, data)
}

// Commit 原子提交一次决策：覆盖状态、追加历史、写入 next_plan 与 last_plan
// 调用方需持有锁
func (s *Store) Commit(ctx context.Context, t Transition) error {
	if t.Plan == nil {
		return &models.InvalidPlanError{Reason: "提交的计划为空"}
	}

	history, err := s.History(ctx)
	if err != nil {
		return err
	}
	history = append(history, t.Entry)

	values := make(map[Key][]byte, 4)
	for key, v := range map[Key]interface{}{
		KeyState:    t.State,
		KeyHistory:  history,
		KeyNextPlan: t.Plan,
		KeyLastPlan: t.Plan,
	} {
		data, err := encode(v)
		if err != nil {
			return err
		}
		values[key] = data
	}

	if err := s.backend.WriteBatch(ctx, values); err != nil {
		return err
	}

	slog.Debug("策略状态已提交",
		"backend", s.backend.Name(),
		"run_id", t.Entry.RunID,
		"history_len", len(history))
	return nil
}

func (s *Store) loadPlan(ctx context.Context, key Key) (*models.Plan, error) {
	var plan models.Plan
	ok, err := s.load(ctx, key, &plan)
	if err != nil || !ok {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		s.recover(&models.CorruptStateError{Key: string(key), Err: err})
		return nil, nil
	}
	return &plan, nil
}

// load 读取并解码，损坏时记录日志并报告未找到
func (s *Store) load(ctx context.Context, key Key, out interface{}) (bool, error) {
	data, err := s.backend.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	var corrupt *models.CorruptStateError
	if errors.As(err, &corrupt) {
		s.recover(corrupt)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.recover(&models.CorruptStateError{Key: string(key), Err: err})
		return false, nil
	}
	return true, nil
}

func (s *Store) recover(err *models.CorruptStateError) {
	slog.Warn("策略存储数据损坏，使用默认值",
		"backend", s.backend.Name(),
		"key", err.Key,
		"error", err.Err)
}

func encode(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化策略数据失败: %w", err)
	}
	return data, nil
}
