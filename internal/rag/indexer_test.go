package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkb/ragkb/internal/model"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

func TestVectorID(t *testing.T) {
	id := VectorID(1, 0, "hello")
	require.Len(t, id, 32)
	require.Regexp(t, "^[0-9a-f]{32}$", id)
	// deterministic
	require.Equal(t, id, VectorID(1, 0, "hello"))
	// any input change yields a different id
	require.NotEqual(t, id, VectorID(2, 0, "hello"))
	require.NotEqual(t, id, VectorID(1, 1, "hello"))
	require.NotEqual(t, id, VectorID(1, 0, "hello!"))
}

func TestIndexerNoSourceText(t *testing.T) {
	idx := NewIndexer(&fakeEmbedder{}, &fakeStore{}, &fakeChunkStore{}, nil, IndexerOptions{})
	doc := &model.Document{ID: 1, Title: "Empty"}
	_, err := idx.Index(context.Background(), doc)
	require.ErrorIs(t, err, appErr.ErrNoSourceText)
}

func TestIndexerBlankTextCommitsZeroChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	chunkStore := &fakeChunkStore{existing: []string{"stale-vector"}}
	idx := NewIndexer(embedder, store, chunkStore, nil, IndexerOptions{})

	doc := &model.Document{ID: 3, Title: "Blank", RawText: "   \n\t  "}
	count, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Equal(t, model.DocumentStatusIndexed, doc.Status)
	require.Equal(t, 0, doc.ChunksCount)
	require.Equal(t, 1, chunkStore.commits)
	require.Empty(t, chunkStore.committed)
	// old vectors are still cleared, nothing is embedded or upserted
	require.Equal(t, [][]string{{"stale-vector"}}, store.deletes)
	require.Empty(t, embedder.calls)
	require.Empty(t, store.upserts)
}

func TestIndexerRawText(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	chunkStore := &fakeChunkStore{}
	idx := NewIndexer(embedder, store, chunkStore, nil, IndexerOptions{ChunkSize: 10, ChunkOverlap: 2})

	doc := &model.Document{ID: 7, Title: "Guide", OriginalFilename: "guide.md", RawText: strings.Repeat("abcdefgh", 4)}
	count, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, count, len(chunkStore.committed))
	require.Equal(t, model.DocumentStatusIndexed, doc.Status)
	require.Equal(t, count, doc.ChunksCount)

	require.Len(t, store.upserts, 1)
	call := store.upserts[0]
	for i, id := range call.ids {
		require.Equal(t, VectorID(7, i, call.texts[i]), id)
		require.Equal(t, int64(7), call.metas[i].DocID)
		require.Equal(t, "Guide", call.metas[i].DocTitle)
		require.Equal(t, "guide.md", call.metas[i].Filename)
		require.Equal(t, i, call.metas[i].ChunkIndex)
	}
	for i, chunk := range chunkStore.committed {
		require.Equal(t, i, chunk.ChunkIndex)
		require.Equal(t, call.ids[i], chunk.VectorID)
	}
}

func TestIndexerClearsOldVectorsFirst(t *testing.T) {
	store := &fakeStore{}
	chunkStore := &fakeChunkStore{existing: []string{"old-1", "old-2"}}
	idx := NewIndexer(&fakeEmbedder{}, store, chunkStore, nil, IndexerOptions{ChunkSize: 100})

	doc := &model.Document{ID: 3, Title: "T", RawText: "fresh content"}
	_, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"old-1", "old-2"}}, store.deletes)
	require.Equal(t, []int64{3}, chunkStore.deleted)
}

func TestIndexerBatching(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	chunkStore := &fakeChunkStore{}
	idx := NewIndexer(embedder, store, chunkStore, nil, IndexerOptions{ChunkSize: 4, ChunkOverlap: 0, BatchSize: 3})

	var sb strings.Builder
	for i := 0; i < 7; i++ {
		sb.WriteString(fmt.Sprintf("ab%d ", i))
	}
	doc := &model.Document{ID: 1, Title: "Batches", RawText: sb.String()}
	count, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 7, count)

	require.Len(t, embedder.calls, 3)
	require.Len(t, embedder.calls[0], 3)
	require.Len(t, embedder.calls[1], 3)
	require.Len(t, embedder.calls[2], 1)
	require.Len(t, store.upserts, 3)
}

func TestIndexerTextLoaderFallback(t *testing.T) {
	loader := func(ctx context.Context, doc *model.Document) (string, error) {
		return "extracted body", nil
	}
	chunkStore := &fakeChunkStore{}
	idx := NewIndexer(&fakeEmbedder{}, &fakeStore{}, chunkStore, loader, IndexerOptions{})

	doc := &model.Document{ID: 9, Title: "Upload", FileKey: "abc123.pdf"}
	count, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, "extracted body", chunkStore.committed[0].Text)
	// no original filename recorded, file key stands in
	require.Equal(t, model.DocumentStatusIndexed, doc.Status)
}

func TestIndexerDiscardsRawText(t *testing.T) {
	chunkStore := &fakeChunkStore{}
	idx := NewIndexer(&fakeEmbedder{}, &fakeStore{}, chunkStore, nil, IndexerOptions{DiscardRawText: true})

	doc := &model.Document{ID: 2, Title: "T", RawText: "body"}
	_, err := idx.Index(context.Background(), doc)
	require.NoError(t, err)
	require.True(t, chunkStore.discarded)
}

func TestIndexerEmbedFailureLeavesNothingCommitted(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("provider down")}
	chunkStore := &fakeChunkStore{}
	idx := NewIndexer(embedder, &fakeStore{}, chunkStore, nil, IndexerOptions{})

	doc := &model.Document{ID: 4, Title: "T", RawText: "body"}
	_, err := idx.Index(context.Background(), doc)
	require.Error(t, err)
	require.Zero(t, chunkStore.commits)
}
