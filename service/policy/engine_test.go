package policy

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/notifier"
	"adaptive-etl-service/service/policy_store"
	"adaptive-etl-service/testutil"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine *Engine
	store  *policy_store.Store
	runs   *artifact.RunStore
	polDir string
}

func newEngineFixture(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()
	runs := testutil.NewTestRunStore(t)
	polDir := filepath.Join(t.TempDir(), "policies")
	backend, err := policy_store.NewFileBackend(polDir)
	require.NoError(t, err)
	store := policy_store.NewStore(backend, nil)
	return &engineFixture{
		engine: NewEngine(store, runs, opts...),
		store:  store,
		runs:   runs,
		polDir: polDir,
	}
}

func reward(v float64) *models.QualityReport {
	return &models.QualityReport{Rows: 10, Reward: &v}
}

func TestEvolveConcreteScenarios(t *testing.T) {
	tests := []struct {
		name        string
		runID       string
		reward      float64
		base        models.Strategy
		next        models.Strategy
		exploration bool
	}{
		{name: "低分使用mean", runID: "abc", reward: 0.3, base: models.StrategyMean, next: models.StrategyMean},
		{name: "高分不填充", runID: "a", reward: 0.9, base: models.StrategyNone, next: models.StrategyNone},
		{name: "中间分使用mode", runID: "a", reward: 0.5, base: models.StrategyMode, next: models.StrategyMode},
		{name: "熵为0时探索", runID: "h", reward: 0.9, base: models.StrategyNone, next: models.StrategyMode, exploration: true},
		{name: "探索mean换为mode", runID: "h", reward: 0.1, base: models.StrategyMean, next: models.StrategyMode, exploration: true},
		{name: "探索mode换为mean", runID: "h", reward: 0.5, base: models.StrategyMode, next: models.StrategyMean, exploration: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			ctx := context.Background()

			decision, err := f.engine.Evolve(ctx, tt.runID, reward(tt.reward))
			require.NoError(t, err)

			assert.Equal(t, tt.base, decision.BaseStrategy)
			assert.Equal(t, tt.next, decision.NextStrategy)
			assert.Equal(t, tt.exploration, decision.Exploration)
			assert.InDelta(t, tt.reward, decision.Score, 1e-9)

			state, err := f.store.State(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.runID, state.LastRunID)
			assert.Equal(t, tt.next, state.NextStrategy)
			assert.Equal(t, tt.exploration, state.Exploration)
			require.NotNil(t, state.LastScore)
			assert.InDelta(t, tt.reward, *state.LastScore, 1e-9)
		})
	}
}

func TestEvolveTemplateThenMutation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.Evolve(ctx, "abc", reward(0.3))
	require.NoError(t, err)
	assert.Equal(t, "abc-next", first.Plan.DatasetID)
	assert.Equal(t, TemplateConfidence, first.Plan.Confidence)

	second, err := f.engine.Evolve(ctx, "a", reward(0.9))
	require.NoError(t, err)

	// 第二次在上一份计划基础上变异，只有 impute 策略变化
	assert.Equal(t, "abc-next", second.Plan.DatasetID)
	require.Len(t, second.Plan.Steps, len(first.Plan.Steps))
	for i, step := range second.Plan.Steps {
		if step.Op == models.OpImpute {
			assert.Equal(t, models.ImputeParams{Strategy: models.StrategyNone}, step.Params)
			continue
		}
		assert.Equal(t, first.Plan.Steps[i], step)
	}

	next, err := f.store.NextPlan(ctx)
	require.NoError(t, err)
	last, err := f.store.LastPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Plan, next)
	assert.Equal(t, next, last)
}

func TestEvolveMutatesProfiledPlan(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	profiled := &models.Plan{
		DatasetID:  "profiled",
		Confidence: 0.87,
		Steps: []models.Step{
			models.NewStep("parse_dates", []string{"order_date"}, models.ParseDateParams{Formats: models.DefaultDateFormats}),
			models.NewStep("impute", []string{"amount"}, models.ImputeParams{Strategy: models.StrategyMedian}),
			models.NewStep("dedupe", nil, models.DeduplicateParams{Keys: []string{"id"}}),
		},
	}
	data, err := os.ReadFile(writePlanFile(t, f.polDir, "last_plan", profiled))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decision, err := f.engine.Evolve(ctx, "abc", reward(0.3))
	require.NoError(t, err)
	assert.Equal(t, "profiled", decision.Plan.DatasetID)
	assert.Equal(t, []string{"amount"}, decision.Plan.Steps[1].Columns)
	assert.Equal(t, models.ImputeParams{Strategy: models.StrategyMean}, decision.Plan.Steps[1].Params)
}

func TestEvolveMissingReport(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Evolve(context.Background(), "missing-run", nil)

	var missing *models.MissingReportError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "missing-run", missing.RunID)

	entries, err := os.ReadDir(f.polDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "报告缺失时不得写入任何策略状态")
}

func TestEvolveInvalidRunID(t *testing.T) {
	f := newEngineFixture(t)
	for _, runID := range []string{"", "../x", "x\n\nevent: forged", "a\rb", ".hidden"} {
		_, err := f.engine.Evolve(context.Background(), runID, reward(0.5))
		assert.ErrorIs(t, err, models.ErrInvalidRunID, runID)
	}

	entries, err := os.ReadDir(f.polDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "非法 run_id 不得写入任何策略状态")
}

func TestEvolveLoadsReportFromRun(t *testing.T) {
	f := newEngineFixture(t)
	testutil.SaveQualityReport(t, f.runs, testutil.NewQualityReport("abc", 100,
		testutil.WithNullCounts(map[string]int{"a": 20, "b": 0})))

	decision, err := f.engine.Evolve(context.Background(), "abc", nil)
	require.NoError(t, err)
	// 20/(100*2)=0.1 -> 1-0.06 = 0.94
	assert.InDelta(t, 0.94, decision.Score, 1e-9)
	assert.Equal(t, models.StrategyNone, decision.NextStrategy)
}

func TestEvolveHistoryGrowsSequentially(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		_, err := f.engine.Evolve(ctx, fmt.Sprintf("run-%d", i), reward(float64(i)/n))
		require.NoError(t, err)
	}

	history, err := f.store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, n)
	for i, entry := range history {
		assert.Equal(t, fmt.Sprintf("run-%d", i), entry.RunID)
	}
}

func TestEvolveConcurrent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.Evolve(ctx, fmt.Sprintf("concurrent-%d", i), reward(0.5))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := f.store.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, n, "并发演化不得丢失历史记录")

	seen := make(map[string]bool, n)
	for _, entry := range history {
		assert.False(t, seen[entry.RunID], "重复的历史记录 %s", entry.RunID)
		seen[entry.RunID] = true
	}

	state, err := f.store.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, history[len(history)-1].RunID, state.LastRunID)
}

func TestEvolveRecoversCorruptState(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(f.polDir, "state.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.polDir, "history.json"), []byte(`{"oops":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.polDir, "last_plan.json"), []byte(`{"steps":[]}`), 0o644))

	state, err := f.store.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsZero())

	decision, err := f.engine.Evolve(ctx, "abc", reward(0.3))
	require.NoError(t, err)
	assert.Equal(t, "abc-next", decision.Plan.DatasetID, "不合法的上一份计划应被忽略")

	history, err := f.store.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEvolveNotifies(t *testing.T) {
	publisher := &testutil.MockPublisher{}
	publisher.On("PublishDecision", mock.Anything, mock.MatchedBy(func(e *models.PolicyDecisionEvent) bool {
		return e.RunID == "abc" && e.NextStrategy == models.StrategyMean && e.PlanSteps == 3
	})).Return(nil).Once()

	f := newEngineFixture(t, WithNotifier(notifier.New(publisher)))
	_, err := f.engine.Evolve(context.Background(), "abc", reward(0.3))
	require.NoError(t, err)

	publisher.AssertExpectations(t)
}

func TestEvolvePublisherFailureIsNotFatal(t *testing.T) {
	publisher := &testutil.MockPublisher{}
	publisher.On("PublishDecision", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	f := newEngineFixture(t, WithNotifier(notifier.New(publisher)))
	_, err := f.engine.Evolve(context.Background(), "abc", reward(0.3))
	require.NoError(t, err)

	history, err := f.store.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

type alwaysExplore struct{}

func (alwaysExplore) ShouldExplore(string) bool { return true }

func TestEvolveWithOptions(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, WithDecider(alwaysExplore{}), WithClock(func() time.Time { return fixed }))

	decision, err := f.engine.Evolve(context.Background(), "abc", reward(0.9))
	require.NoError(t, err)
	assert.True(t, decision.Exploration)
	assert.Equal(t, models.StrategyMode, decision.NextStrategy)
	assert.Equal(t, fixed, decision.DecidedAt)

	history, err := f.store.History(context.Background())
	require.NoError(t, err)
	assert.True(t, fixed.Equal(history[0].Timestamp))
}

func TestEvolveCanceledContext(t *testing.T) {
	f := newEngineFixture(t)

	// 另一个持有者占住锁，等待中的 Evolve 随上下文超时返回
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = f.store.WithLock(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.engine.Evolve(ctx, "abc", reward(0.3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func writePlanFile(t *testing.T, dir, key string, plan *models.Plan) string {
	t.Helper()
	backend, err := policy_store.NewFileBackend(dir)
	require.NoError(t, err)
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	require.NoError(t, backend.Write(context.Background(), policy_store.Key(key), data))
	return filepath.Join(dir, key+".json")
}
