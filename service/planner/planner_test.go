package planner

import (
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/profiler"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanner(t *testing.T) (*Service, *artifact.RunStore) {
	t.Helper()
	runs, err := artifact.NewRunStore(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	return NewService(runs), runs
}

func TestProducePlan_ColdStart(t *testing.T) {
	svc, _ := newPlanner(t)

	result, err := svc.ProducePlan(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "auto", result.Plan.DatasetID)

	_, err = os.Stat(result.PlanPath)
	require.NoError(t, err, "返回前必须已落盘")

	stored, err := svc.GetPlan(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Plan, stored)
}

func TestProducePlan_WarmStart(t *testing.T) {
	svc, _ := newPlanner(t)
	svc.newID = func() string { return "run-fixed" }

	rows := []profiler.Row{
		{"id": 1, "order_date": "2024-01-01", "amount": 10.0},
		{"id": 2, "order_date": "2024-01-02", "amount": nil},
	}
	result, err := svc.ProducePlan(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", result.RunID)
	assert.Len(t, result.Plan.Steps, 3)
}

func TestProducePlan_UniqueRunIDs(t *testing.T) {
	svc, _ := newPlanner(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		result, err := svc.ProducePlan(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, seen[result.RunID])
		seen[result.RunID] = true
	}
}

func TestProducePlan_Canceled(t *testing.T) {
	svc, runs := newPlanner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProducePlan(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	infos, err := runs.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestGetPlan_Missing(t *testing.T) {
	svc, _ := newPlanner(t)
	_, err := svc.GetPlan("nope")
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)
}
