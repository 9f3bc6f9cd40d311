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

func TestDocumentRepoCRUD(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	docs := repo.NewDocumentRepo(conn)
	ctx := context.Background()

	doc := &model.Document{
		Title:   "Test doc",
		RawText: "some body text",
		Status:  model.DocumentStatusUploaded,
		Ctime:   time.Now().Unix(),
	}
	require.NoError(t, docs.Create(ctx, doc))
	require.NotZero(t, doc.ID)
	defer docs.Delete(ctx, doc.ID)

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "Test doc", got.Title)
	require.Equal(t, "some body text", got.RawText)
	require.Equal(t, model.DocumentStatusUploaded, got.Status)

	require.NoError(t, docs.SetStatus(ctx, doc.ID, model.DocumentStatusFailed, "boom"))
	got, err = docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusFailed, got.Status)
	require.Equal(t, "boom", got.ErrorMessage)

	list, err := docs.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.NoError(t, docs.Delete(ctx, doc.ID))
	_, err = docs.GetByID(ctx, doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, docs.Delete(ctx, doc.ID), appErr.ErrNotFound)
}
