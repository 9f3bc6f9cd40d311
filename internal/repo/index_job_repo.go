package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/pkg/dbutil"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

var indexJobFields = []string{
	"id", "document_id", "status", "started_at", "finished_at", "error_message", "task_id", "ctime",
}

type IndexJobRepo struct {
	db *sql.DB
}

func NewIndexJobRepo(db *sql.DB) *IndexJobRepo {
	return &IndexJobRepo{db: db}
}

func (r *IndexJobRepo) Create(ctx context.Context, job *model.IndexJob) error {
	const query = `
		INSERT INTO index_jobs (document_id, status, started_at, finished_at, error_message, task_id, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query,
		job.DocumentID,
		job.Status,
		job.StartedAt,
		job.FinishedAt,
		job.ErrorMessage,
		job.TaskID,
		job.Ctime,
	)
	return row.Scan(&job.ID)
}

func (r *IndexJobRepo) GetByID(ctx context.Context, id int64) (*model.IndexJob, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *IndexJobRepo) GetByTaskID(ctx context.Context, taskID string) (*model.IndexJob, error) {
	return r.getOne(ctx, map[string]interface{}{"task_id": taskID})
}

func (r *IndexJobRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.IndexJob, error) {
	sqlStr, args, err := builder.BuildSelect("index_jobs", where, indexJobFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var job model.IndexJob
	if err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.Status,
		&job.StartedAt,
		&job.FinishedAt,
		&job.ErrorMessage,
		&job.TaskID,
		&job.Ctime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// MarkRunning transitions a pending job to RUNNING and stamps its start time.
func (r *IndexJobRepo) MarkRunning(ctx context.Context, id int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":     model.IndexJobStatusRunning,
		"started_at": time.Now().Unix(),
	})
}

// MarkFinished moves a job to its terminal status with an optional error text.
func (r *IndexJobRepo) MarkFinished(ctx context.Context, id int64, status string, errorMessage string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":        status,
		"finished_at":   time.Now().Unix(),
		"error_message": errorMessage,
	})
}

func (r *IndexJobRepo) update(ctx context.Context, id int64, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("index_jobs", map[string]interface{}{"id": id}, update)
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

// DeleteFinishedBefore prunes terminal jobs older than the cutoff.
func (r *IndexJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM index_jobs WHERE status IN ('DONE', 'FAILED') AND ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
