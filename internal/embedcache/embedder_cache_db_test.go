package embedcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkb/ragkb/internal/repo"
	"github.com/ragkb/ragkb/internal/testutil"
)

type countingEmbedder struct {
	calls [][]string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 1536)
		v[0] = float32(len(texts[i]))
		vectors[i] = v
	}
	return vectors, nil
}

func (c *countingEmbedder) ModelName() string { return "counting-model" }

func TestDBEmbedderCachesBetweenBatches(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)
	inner := &countingEmbedder{}
	embedder := WrapDBCacheToEmbedder(inner, cacheRepo)
	ctx := context.Background()

	first, err := embedder.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, inner.calls, 1)

	// second batch shares one text: only the new one reaches the provider
	second, err := embedder.EmbedBatch(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Len(t, inner.calls, 2)
	require.Equal(t, []string{"gamma"}, inner.calls[1])
	require.Equal(t, first[0], second[0])

	// fully cached batch makes no provider call
	third, err := embedder.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	require.Len(t, third, 3)
	require.Len(t, inner.calls, 2)
}
