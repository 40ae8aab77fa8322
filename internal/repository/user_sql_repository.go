package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/artificien/orchestrator/internal/model"
)

// SQLUserRepo is the MySQL-backed variant of UserRepo. Users live in the
// `users` table; dataset entitlements are rows of `user_datasets
// (user_id, dataset_id)`, one per purchase.
type SQLUserRepo struct {
	db *sql.DB
}

// NewSQLUserRepo returns a SQLUserRepo bound to the given database.
func NewSQLUserRepo(db *sql.DB) *SQLUserRepo { return &SQLUserRepo{db: db} }

// GetUser fetches a user record with its purchased dataset IDs.
func (r *SQLUserRepo) GetUser(ctx context.Context, userID string) (*model.User, error) {
	const q = `SELECT user_id, name, user_account_email, is_developer, enterprise FROM users WHERE user_id = ?`
	var u model.User
	var name, email, enterprise sql.NullString
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&u.UserID, &name, &email, &u.IsDeveloper, &enterprise)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get user %q: %v", userID, err)
	}
	u.Name = name.String
	u.Email = email.String
	u.Enterprise = enterprise.String

	const dq = `SELECT dataset_id FROM user_datasets WHERE user_id = ?`
	rows, err := r.db.QueryContext(ctx, dq, userID)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get purchases for %q: %v", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrapf(ErrUnavailable, "scan purchase for %q: %v", userID, err)
		}
		u.DatasetsPurchased = append(u.DatasetsPurchased, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "get purchases for %q: %v", userID, err)
	}
	return &u, nil
}
