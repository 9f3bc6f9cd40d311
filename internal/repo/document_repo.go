package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/pkg/dbutil"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

var documentFields = []string{
	"id", "title", "file_key", "original_filename", "raw_text",
	"status", "chunks_count", "last_indexed_at", "error_message", "ctime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	const query = `
		INSERT INTO documents (title, file_key, original_filename, raw_text, status, chunks_count, last_indexed_at, error_message, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query,
		doc.Title,
		doc.FileKey,
		doc.OriginalFilename,
		doc.RawText,
		doc.Status,
		doc.ChunksCount,
		doc.LastIndexedAt,
		doc.ErrorMessage,
		doc.Ctime,
	)
	return row.Scan(&doc.ID)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// SetStatus updates the lifecycle status and error text of a document.
func (r *DocumentRepo) SetStatus(ctx context.Context, id int64, status string, errorMessage string) error {
	where := map[string]interface{}{
		"id": id,
	}
	update := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	if err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.FileKey,
		&doc.OriginalFilename,
		&doc.RawText,
		&doc.Status,
		&doc.ChunksCount,
		&doc.LastIndexedAt,
		&doc.ErrorMessage,
		&doc.Ctime,
	); err != nil {
		return nil, err
	}
	return &doc, nil
}
