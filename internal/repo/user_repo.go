package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/pkg/dbutil"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	const query = `
		INSERT INTO users (username, password_hash, ctime)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.Ctime)
	if err := row.Scan(&user.ID); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	where := map[string]interface{}{
		"username": username,
	}
	sqlStr, args, err := builder.BuildSelect("users", where, []string{"id", "username", "password_hash", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var user model.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
