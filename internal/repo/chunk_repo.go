package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/pkg/dbutil"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ListVectorIDs returns the vector ids of all live chunks of a document, in
// chunk order.
func (r *ChunkRepo) ListVectorIDs(ctx context.Context, docID int64) ([]string, error) {
	const query = `SELECT vector_id FROM chunks WHERE document_id = $1 ORDER BY chunk_index`
	rows, err := r.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, docID int64) error {
	where := map[string]interface{}{
		"document_id": docID,
	}
	sqlStr, args, err := builder.BuildDelete("chunks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, docID int64) ([]model.Chunk, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "chunk_index asc",
	}
	sqlStr, args, err := builder.BuildSelect("chunks", where, []string{"id", "document_id", "chunk_index", "text", "vector_id", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		var chunk model.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Text, &chunk.VectorID, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// CommitIndexed is the single commit point of an indexing run: within one
// transaction it bulk-inserts the new chunk rows and flips the document to
// INDEXED with its new chunk count. When discardRawText is set the raw text is
// cleared in the same transaction.
func (r *ChunkRepo) CommitIndexed(ctx context.Context, doc *model.Document, chunks []*model.Chunk, discardRawText bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(chunks) > 0 {
		data := make([]map[string]interface{}, 0, len(chunks))
		for _, chunk := range chunks {
			data = append(data, map[string]interface{}{
				"document_id": chunk.DocumentID,
				"chunk_index": chunk.ChunkIndex,
				"text":        chunk.Text,
				"vector_id":   chunk.VectorID,
				"ctime":       chunk.Ctime,
			})
		}
		sqlStr, args, err := builder.BuildInsert("chunks", data)
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}

	now := time.Now().Unix()
	update := map[string]interface{}{
		"status":          model.DocumentStatusIndexed,
		"chunks_count":    len(chunks),
		"last_indexed_at": now,
		"error_message":   "",
	}
	if discardRawText {
		update["raw_text"] = ""
	}
	sqlStr, args, err := builder.BuildUpdate("documents", map[string]interface{}{"id": doc.ID}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	doc.Status = model.DocumentStatusIndexed
	doc.ChunksCount = len(chunks)
	doc.LastIndexedAt = now
	doc.ErrorMessage = ""
	if discardRawText {
		doc.RawText = ""
	}
	return nil
}
