package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/repo"
	"github.com/ragkb/ragkb/internal/testutil"
)

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	cache := repo.NewEmbeddingCacheRepo(conn)
	ctx := context.Background()

	embedding := make([]float32, 1536)
	embedding[0] = 0.25
	embedding[1535] = -1

	item := &model.EmbeddingCache{
		ModelName:   "test-model",
		ContentHash: "hash-1",
		Embedding:   embedding,
		Ctime:       time.Now().Unix(),
	}
	require.NoError(t, cache.Save(ctx, item))

	got, ok, err := cache.Get(ctx, "test-model", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 0.25, got[0], 1e-6)
	require.InDelta(t, -1, got[1535], 1e-6)

	_, ok, err = cache.Get(ctx, "test-model", "missing")
	require.NoError(t, err)
	require.False(t, ok)

	// upsert replaces the vector
	embedding[0] = 0.5
	require.NoError(t, cache.Save(ctx, item))
	got, ok, err = cache.Get(ctx, "test-model", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 0.5, got[0], 1e-6)

	pruned, err := cache.DeleteBefore(ctx, time.Now().Unix()+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pruned, int64(1))
}
