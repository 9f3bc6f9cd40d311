package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/ai"
	"github.com/ragkb/ragkb/internal/model"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
	"github.com/ragkb/ragkb/internal/vectorstore"
)

// VectorID derives the deterministic id of a chunk vector from the document
// id, the chunk position and the chunk text. Re-indexing unchanged content
// yields the same ids.
func VectorID(docID int64, chunkIndex int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", docID, chunkIndex, text)))
	return hex.EncodeToString(sum[:])[:32]
}

// IChunkStore is the slice of chunk persistence the indexer needs.
type IChunkStore interface {
	ListVectorIDs(ctx context.Context, docID int64) ([]string, error)
	DeleteByDocument(ctx context.Context, docID int64) error
	CommitIndexed(ctx context.Context, doc *model.Document, chunks []*model.Chunk, discardRawText bool) error
}

// TextLoader produces the document body when it is not stored inline, for
// example by downloading and parsing the uploaded file.
type TextLoader func(ctx context.Context, doc *model.Document) (string, error)

type IndexerOptions struct {
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	DiscardRawText bool
}

type Indexer struct {
	embedder ai.IEmbedder
	store    vectorstore.IStore
	chunks   IChunkStore
	loader   TextLoader
	opts     IndexerOptions
}

func NewIndexer(embedder ai.IEmbedder, store vectorstore.IStore, chunks IChunkStore, loader TextLoader, opts IndexerOptions) *Indexer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 900
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		chunks:   chunks,
		loader:   loader,
		opts:     opts,
	}
}

// Index rebuilds a document's chunks and vectors from scratch. Old vectors
// are removed before the new ones are written, and the chunk rows plus the
// document status flip are committed in one transaction at the end. A crash
// mid-run leaves the document unindexed rather than half-indexed.
func (i *Indexer) Index(ctx context.Context, doc *model.Document) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("doc_id", doc.ID))

	text, err := i.resolveText(ctx, doc)
	if err != nil {
		return 0, err
	}
	pieces, err := ChunkText(text, i.opts.ChunkSize, i.opts.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	logger.Info("indexing document", zap.Int("chunks", len(pieces)))

	if err := i.clearOld(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("clear old index: %w", err)
	}

	filename := sourceFilename(doc)
	now := time.Now().Unix()
	ids := make([]string, len(pieces))
	metas := make([]vectorstore.Metadata, len(pieces))
	rows := make([]*model.Chunk, len(pieces))
	for idx, piece := range pieces {
		ids[idx] = VectorID(doc.ID, idx, piece)
		metas[idx] = vectorstore.Metadata{
			DocID:      doc.ID,
			DocTitle:   doc.Title,
			Filename:   filename,
			ChunkIndex: idx,
		}
		rows[idx] = &model.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Text:       piece,
			VectorID:   ids[idx],
			Ctime:      now,
		}
	}

	for start := 0; start < len(pieces); start += i.opts.BatchSize {
		end := start + i.opts.BatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		vectors, err := i.embedder.EmbedBatch(ctx, pieces[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), end-start)
		}
		if err := i.store.Upsert(ctx, ids[start:end], vectors, pieces[start:end], metas[start:end]); err != nil {
			return 0, fmt.Errorf("upsert vectors at %d: %w", start, err)
		}
	}

	if err := i.chunks.CommitIndexed(ctx, doc, rows, i.opts.DiscardRawText); err != nil {
		return 0, fmt.Errorf("commit index: %w", err)
	}
	logger.Info("document indexed", zap.Int("chunks", len(rows)))
	return len(rows), nil
}

// resolveText picks the source by presence, not content: a document with raw
// text (even blank) or a readable file still indexes, yielding zero chunks.
func (i *Indexer) resolveText(ctx context.Context, doc *model.Document) (string, error) {
	if doc.RawText != "" {
		return doc.RawText, nil
	}
	if i.loader != nil && doc.FileKey != "" {
		return i.loader(ctx, doc)
	}
	return "", appErr.ErrNoSourceText
}

func (i *Indexer) clearOld(ctx context.Context, docID int64) error {
	oldIDs, err := i.chunks.ListVectorIDs(ctx, docID)
	if err != nil {
		return err
	}
	if len(oldIDs) > 0 {
		if err := i.store.Delete(ctx, oldIDs); err != nil {
			return err
		}
	}
	return i.chunks.DeleteByDocument(ctx, docID)
}

func sourceFilename(doc *model.Document) string {
	if doc.OriginalFilename != "" {
		return doc.OriginalFilename
	}
	if doc.FileKey != "" {
		return doc.FileKey
	}
	return "unknown"
}
