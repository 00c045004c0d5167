package policy_store_test

import (
	"adaptive-etl-service/service/models"
	"adaptive-etl-service/service/policy_store"
	"adaptive-etl-service/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormBackend(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	backend, err := policy_store.NewGormBackend(tdb.DB)
	require.NoError(t, err)
	assert.Equal(t, "gorm:sqlite", backend.Name())

	ctx := context.Background()

	t.Run("缺失键", func(t *testing.T) {
		tdb.CleanDB()
		_, err := backend.Read(ctx, policy_store.KeyState)
		assert.ErrorIs(t, err, policy_store.ErrNotFound)
	})

	t.Run("写入后覆盖", func(t *testing.T) {
		tdb.CleanDB()
		require.NoError(t, backend.Write(ctx, policy_store.KeyState, []byte(`{"last_run_id":"a"}`)))
		require.NoError(t, backend.Write(ctx, policy_store.KeyState, []byte(`{"last_run_id":"b"}`)))

		data, err := backend.Read(ctx, policy_store.KeyState)
		require.NoError(t, err)
		assert.JSONEq(t, `{"last_run_id":"b"}`, string(data))

		var count int64
		tdb.DB.Model(&models.PolicyDocument{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("批量写入", func(t *testing.T) {
		tdb.CleanDB()
		err := backend.WriteBatch(ctx, map[policy_store.Key][]byte{
			policy_store.KeyState:   []byte(`{}`),
			policy_store.KeyHistory: []byte(`[]`),
		})
		require.NoError(t, err)

		var count int64
		tdb.DB.Model(&models.PolicyDocument{}).Count(&count)
		assert.Equal(t, int64(2), count)
	})

	t.Run("类型化存储", func(t *testing.T) {
		tdb.CleanDB()
		store := policy_store.NewStore(backend, nil)
		require.NoError(t, store.Append(ctx, models.HistoryEntry{RunID: "r1"}))

		history, err := store.History(ctx)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "r1", history[0].RunID)
	})
}
