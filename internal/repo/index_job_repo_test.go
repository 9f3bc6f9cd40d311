package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ragkb/ragkb/internal/model"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
	"github.com/ragkb/ragkb/internal/repo"
	"github.com/ragkb/ragkb/internal/testutil"
)

func TestIndexJobLifecycle(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	docs := repo.NewDocumentRepo(conn)
	jobs := repo.NewIndexJobRepo(conn)
	ctx := context.Background()

	doc := &model.Document{
		Title:   "Job doc",
		RawText: "body",
		Status:  model.DocumentStatusUploaded,
		Ctime:   time.Now().Unix(),
	}
	require.NoError(t, docs.Create(ctx, doc))
	defer docs.Delete(ctx, doc.ID)

	job := &model.IndexJob{
		DocumentID: doc.ID,
		Status:     model.IndexJobStatusPending,
		TaskID:     "deadbeefdeadbeefdeadbeefdeadbeef",
		Ctime:      time.Now().Unix(),
	}
	require.NoError(t, jobs.Create(ctx, job))
	require.NotZero(t, job.ID)

	byTask, err := jobs.GetByTaskID(ctx, job.TaskID)
	require.NoError(t, err)
	require.Equal(t, job.ID, byTask.ID)

	require.NoError(t, jobs.MarkRunning(ctx, job.ID))
	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.IndexJobStatusRunning, got.Status)
	require.NotZero(t, got.StartedAt)

	require.NoError(t, jobs.MarkFinished(ctx, job.ID, model.IndexJobStatusFailed, "embed failed"))
	got, err = jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.IndexJobStatusFailed, got.Status)
	require.Equal(t, "embed failed", got.ErrorMessage)
	require.NotZero(t, got.FinishedAt)

	pruned, err := jobs.DeleteFinishedBefore(ctx, time.Now().Unix()+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, pruned, int64(1))
	_, err = jobs.GetByID(ctx, job.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
