package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/servicehub/servicehub/internal/models"
)

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO users (role, username, email, password_hash, is_admin, created) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Role, u.Username, u.Email, u.PasswordHash, u.IsAdmin, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, role, username, email, password_hash, is_admin, created FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, role, username, email, password_hash, is_admin, created FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, role, username, email, password_hash, is_admin, created FROM users WHERE username = ?`, username))
}

func (r *SQLiteRepo) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.conn.Exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

func (r *SQLiteRepo) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Role, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}
