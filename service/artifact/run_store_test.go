package artifact

import (
	"adaptive-etl-service/service/models"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	return store
}

func TestRunStore_PlanRoundTrip(t *testing.T) {
	store := newStore(t)
	plan := &models.Plan{
		DatasetID:  "ds",
		Confidence: 0.5,
		Steps: []models.Step{
			models.NewStep("dedupe", nil, models.DeduplicateParams{Keys: []string{"id"}}),
		},
	}

	path, err := store.SavePlan("run-1", plan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "run-1", PlanFile), path)

	loaded, err := store.LoadPlan("run-1")
	require.NoError(t, err)
	assert.Equal(t, plan, loaded)
}

func TestRunStore_MissingArtifacts(t *testing.T) {
	store := newStore(t)

	_, err := store.LoadPlan("run-x")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = store.LoadQualityReport("run-x")
	var missing *models.MissingReportError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "run-x", missing.RunID)
}

func TestRunStore_InvalidRunID(t *testing.T) {
	store := newStore(t)
	for _, runID := range []string{"", "a/b", `a\b`, "..", ".hidden", "a\nb", "a\x00b"} {
		_, err := store.RunDir(runID)
		assert.ErrorIs(t, err, models.ErrInvalidRunID, runID)
	}
}

func TestRunStore_ListAndRemove(t *testing.T) {
	store := newStore(t)
	for _, runID := range []string{"run-a", "run-b"} {
		_, err := store.EnsureRunDir(runID)
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), ".staging"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "stray.txt"), nil, 0o644))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.ElementsMatch(t, []string{"run-a", "run-b"}, ids)

	require.NoError(t, store.RemoveRun("run-a"))
	_, err = os.Stat(filepath.Join(store.Root(), "run-a"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunStore_JSONArtifacts(t *testing.T) {
	store := newStore(t)
	type entry struct {
		Status string `json:"status"`
	}

	_, err := store.SaveJSON("run-j", ExecutorLogFile, entry{Status: "success"})
	require.NoError(t, err)

	var out entry
	require.NoError(t, store.LoadJSON("run-j", ExecutorLogFile, &out))
	assert.Equal(t, "success", out.Status)
}
