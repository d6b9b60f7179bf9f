package permissions

import (
	"context"
	"database/sql"
	"fmt"

	"docmgmt-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const permissionColumns = `id, user_id, module, can_read, can_write, can_update, can_delete, updated_at`

func (r *PGRepo) ListForUser(ctx context.Context, userID int64) ([]Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE user_id = $1 ORDER BY module`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Upsert(ctx context.Context, p Permission) (Permission, error) {
	const query = `
INSERT INTO permissions (user_id, module, can_read, can_write, can_update, can_delete, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (user_id, module) DO UPDATE SET
    can_read = EXCLUDED.can_read,
    can_write = EXCLUDED.can_write,
    can_update = EXCLUDED.can_update,
    can_delete = EXCLUDED.can_delete,
    updated_at = now()
RETURNING ` + permissionColumns
	saved, err := scanPermission(r.DB.QueryRowContext(ctx, query,
		p.UserID,
		p.Module,
		p.Read,
		p.Write,
		p.Update,
		p.Delete,
	))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Permission{}, ErrUserNotFound
		}
		return Permission{}, fmt.Errorf("upsert permission: %w", err)
	}
	return saved, nil
}

func (r *PGRepo) Delete(ctx context.Context, userID int64, module string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM permissions WHERE user_id = $1 AND module = $2`, userID, module)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (Permission, error) {
	var p Permission
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Module,
		&p.Read,
		&p.Write,
		&p.Update,
		&p.Delete,
		&p.UpdatedAt,
	)
	return p, err
}
