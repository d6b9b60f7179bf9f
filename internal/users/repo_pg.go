package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, password_hash, full_name, role, refresh_token_hash, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (email, password_hash, full_name, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
RETURNING ` + userColumns
	created, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		string(user.Role),
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, user User) (User, error) {
	const query = `
UPDATE users
SET full_name = $2, role = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	updated, err := scanUser(r.DB.QueryRowContext(ctx, query, user.ID, user.FullName, string(user.Role)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return updated, nil
}

func (r *PGRepo) SetRefreshTokenHash(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, nullableString(hash))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the user; permissions go with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		user        User
		role        string
		refreshHash sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&role,
		&refreshHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	user.Role = auth.Role(role)
	if refreshHash.Valid {
		user.RefreshTokenHash = refreshHash.String
	}
	return user, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
