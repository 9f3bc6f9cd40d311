package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
	"github.com/ragkb/ragkb/internal/rag"
	"github.com/ragkb/ragkb/internal/vectorstore"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-embed" }

type stubStore struct{}

func (stubStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []vectorstore.Metadata) error {
	return nil
}

func (stubStore) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) (*vectorstore.QueryResult, error) {
	return &vectorstore.QueryResult{
		Texts:     []string{"stored chunk"},
		Metadatas: []vectorstore.Metadata{{DocID: 1, DocTitle: "Doc", Filename: "doc.md", ChunkIndex: 0}},
		Distances: []float64{0.2},
	}, nil
}

func (stubStore) Delete(ctx context.Context, ids []string) error { return nil }

type stubCompleter struct {
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	return "an answer [1]", nil
}

func (s *stubCompleter) ModelName() string { return "stub-chat" }

func newAskService(embedder *stubEmbedder, completer *stubCompleter, cacheSize int) *AskService {
	composer := rag.NewComposer(rag.NewRetriever(embedder, stubStore{}), completer)
	return NewAskService(composer, 6, cacheSize, time.Minute, 0)
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	svc := newAskService(&stubEmbedder{}, &stubCompleter{}, 0)
	_, err := svc.Ask(context.Background(), "   ", 0, nil, false)
	require.ErrorIs(t, err, appErr.ErrInvalidArgument)
}

func TestAskUsesDefaultTopKAndCaches(t *testing.T) {
	completer := &stubCompleter{}
	svc := newAskService(&stubEmbedder{}, completer, 16)

	first, err := svc.Ask(context.Background(), "what is this", 0, nil, false)
	require.NoError(t, err)
	require.Equal(t, "an answer [1]", first.Answer)
	require.Equal(t, 1, completer.calls)

	// identical ask is served from cache
	second, err := svc.Ask(context.Background(), "what is this", 0, nil, false)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, completer.calls)

	// different doc filter is a different cache entry
	_, err = svc.Ask(context.Background(), "what is this", 0, []int64{1}, false)
	require.NoError(t, err)
	require.Equal(t, 2, completer.calls)
}

func TestAskExplainBypassesCache(t *testing.T) {
	completer := &stubCompleter{}
	svc := newAskService(&stubEmbedder{}, completer, 16)

	answer, err := svc.Ask(context.Background(), "q", 3, nil, true)
	require.NoError(t, err)
	require.NotNil(t, answer.Trace)
	require.Equal(t, 3, answer.Trace.TopK)

	_, err = svc.Ask(context.Background(), "q", 3, nil, true)
	require.NoError(t, err)
	require.Equal(t, 2, completer.calls)
}

func TestCacheKeyDistinguishesNilAndEmptyDocIDs(t *testing.T) {
	require.NotEqual(t, cacheKey("q", 6, nil), cacheKey("q", 6, []int64{}))
	require.NotEqual(t, cacheKey("q", 6, []int64{1, 2}), cacheKey("q", 6, []int64{1}))
	require.Equal(t, cacheKey("q", 6, []int64{1, 2}), cacheKey("q", 6, []int64{1, 2}))
}
