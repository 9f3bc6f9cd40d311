package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ragkb/ragkb/internal/ai"
	"github.com/ragkb/ragkb/internal/vectorstore"
)

// Hit is one retrieved chunk, carrying the stored text, its metadata and the
// raw distance reported by the vector store.
type Hit struct {
	Text     string
	Meta     vectorstore.Metadata
	Distance float64
}

type Retriever struct {
	embedder ai.IEmbedder
	store    vectorstore.IStore
}

func NewRetriever(embedder ai.IEmbedder, store vectorstore.IStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the question and returns the topK nearest chunks in store
// order. A nil docIDs slice searches everything; an empty one matches nothing
// and skips embedding and search entirely. Stages are timed into the trace.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, docIDs []int64, trace *Trace) ([]Hit, error) {
	var filter *vectorstore.Filter
	if docIDs != nil {
		trace.DocIDs = docIDs
		if len(docIDs) == 0 {
			trace.Add("Document filter", 0, "no documents selected")
			return nil, nil
		}
		filter = &vectorstore.Filter{DocIDs: docIDs}
		trace.Add("Document filter", 0, "doc_ids="+joinIDs(docIDs))
	}

	started := time.Now()
	vectors, err := r.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}
	trace.Add("Embed question", time.Since(started), "model="+r.embedder.ModelName())

	started = time.Now()
	result, err := r.store.Query(ctx, vectors[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	trace.Add("Vector search", time.Since(started), fmt.Sprintf("top_k=%d", topK))

	started = time.Now()
	hits := make([]Hit, 0, result.Len())
	for i := 0; i < result.Len(); i++ {
		hits = append(hits, Hit{
			Text:     result.Texts[i],
			Meta:     result.Metadatas[i],
			Distance: result.Distances[i],
		})
	}
	trace.Add("Assemble hits", time.Since(started), fmt.Sprintf("hits=%d", len(hits)))
	return hits, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
