package rag

import (
	"context"
	"fmt"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/vectorstore"
)

type fakeEmbedder struct {
	calls     [][]string
	failAfter int
	err       error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil && len(f.calls) > f.failAfter {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type upsertCall struct {
	ids   []string
	texts []string
	metas []vectorstore.Metadata
}

type fakeStore struct {
	upserts []upsertCall
	deletes [][]string
	queries []*vectorstore.Filter
	result  *vectorstore.QueryResult
	err     error
}

func (f *fakeStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []vectorstore.Metadata) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, upsertCall{
		ids:   append([]string(nil), ids...),
		texts: append([]string(nil), texts...),
		metas: append([]vectorstore.Metadata(nil), metas...),
	})
	return nil
}

func (f *fakeStore) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) (*vectorstore.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, filter)
	if f.result == nil {
		return &vectorstore.QueryResult{}, nil
	}
	return f.result, nil
}

func (f *fakeStore) Delete(ctx context.Context, ids []string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, append([]string(nil), ids...))
	return nil
}

type fakeChunkStore struct {
	existing  []string
	deleted   []int64
	committed []*model.Chunk
	discarded bool
	commits   int
}

func (f *fakeChunkStore) ListVectorIDs(ctx context.Context, docID int64) ([]string, error) {
	return f.existing, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, docID int64) error {
	f.deleted = append(f.deleted, docID)
	return nil
}

func (f *fakeChunkStore) CommitIndexed(ctx context.Context, doc *model.Document, chunks []*model.Chunk, discardRawText bool) error {
	f.commits++
	f.committed = chunks
	f.discarded = discardRawText
	doc.Status = model.DocumentStatusIndexed
	doc.ChunksCount = len(chunks)
	return nil
}

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) ModelName() string {
	return "fake-chat"
}

func hitsFixture(n int) *vectorstore.QueryResult {
	result := &vectorstore.QueryResult{}
	for i := 0; i < n; i++ {
		result.Texts = append(result.Texts, fmt.Sprintf("chunk text %d", i))
		result.Metadatas = append(result.Metadatas, vectorstore.Metadata{
			DocID:      int64(i + 1),
			DocTitle:   fmt.Sprintf("Doc %d", i+1),
			Filename:   fmt.Sprintf("doc%d.md", i+1),
			ChunkIndex: i,
		})
		result.Distances = append(result.Distances, 0.1*float64(i+1))
	}
	return result
}
