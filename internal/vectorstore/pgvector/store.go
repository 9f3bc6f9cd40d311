package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/ragkb/ragkb/internal/vectorstore"
)

// Store keeps vectors in the chunk_vectors table and answers nearest-neighbor
// queries with the pgvector cosine distance operator.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Upsert(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []vectorstore.Metadata) error {
	if len(ids) == 0 {
		return nil
	}
	if len(vectors) != len(ids) || len(texts) != len(ids) || len(metas) != len(ids) {
		return fmt.Errorf("mismatched upsert lengths: ids=%d vectors=%d texts=%d metas=%d",
			len(ids), len(vectors), len(texts), len(metas))
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids)*7)
	for i, id := range ids {
		base := i * 7
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args,
			id,
			metas[i].DocID,
			metas[i].DocTitle,
			metas[i].Filename,
			metas[i].ChunkIndex,
			texts[i],
			pgv.NewVector(vectors[i]),
		)
	}
	query := fmt.Sprintf(`
		INSERT INTO chunk_vectors (vector_id, doc_id, doc_title, doc_filename, chunk_index, text, embedding)
		VALUES %s
		ON CONFLICT (vector_id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			doc_title = EXCLUDED.doc_title,
			doc_filename = EXCLUDED.doc_filename,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`, strings.Join(placeholders, ", "))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) (*vectorstore.QueryResult, error) {
	if topK <= 0 {
		return &vectorstore.QueryResult{}, nil
	}
	args := []interface{}{pgv.NewVector(vector)}
	where := ""
	if filter != nil && filter.DocIDs != nil {
		if len(filter.DocIDs) == 0 {
			return &vectorstore.QueryResult{}, nil
		}
		where = "WHERE doc_id = ANY($2)"
		args = append(args, pq.Array(filter.DocIDs))
	}
	args = append(args, topK)
	query := fmt.Sprintf(`
		SELECT text, doc_id, doc_title, doc_filename, chunk_index, embedding <=> $1 AS distance
		FROM chunk_vectors
		%s
		ORDER BY distance
		LIMIT $%d
	`, where, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := &vectorstore.QueryResult{}
	for rows.Next() {
		var text string
		var meta vectorstore.Metadata
		var distance float64
		if err := rows.Scan(&text, &meta.DocID, &meta.DocTitle, &meta.Filename, &meta.ChunkIndex, &distance); err != nil {
			return nil, err
		}
		result.Texts = append(result.Texts, text)
		result.Metadatas = append(result.Metadatas, meta)
		result.Distances = append(result.Distances, distance)
	}
	return result, rows.Err()
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `DELETE FROM chunk_vectors WHERE vector_id = ANY($1)`
	_, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	return err
}
