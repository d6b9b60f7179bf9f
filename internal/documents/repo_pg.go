package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docmgmt-backend/internal/shared/telemetry"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, filename, storage_path, mimetype, size_bytes, created_at`

func (r *PGRepo) Create(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (filename, storage_path, mimetype, size_bytes, created_at)
VALUES ($1, $2, $3, $4, now())
RETURNING ` + documentColumns
	created, err := scanDocument(r.DB.QueryRowContext(ctx, query,
		doc.FileName,
		doc.StoragePath,
		doc.MimeType,
		doc.SizeBytes,
	))
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Update writes the new name, runs apply while the row is locked, then commits.
func (r *PGRepo) Update(ctx context.Context, doc Document, apply func() error) (Document, error) {
	const query = `
UPDATE documents
SET filename = $2, storage_path = $3
WHERE id = $1
RETURNING ` + documentColumns

	var updated Document
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = scanDocument(tx.QueryRowContext(ctx, query, doc.ID, doc.FileName, doc.StoragePath))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if apply != nil {
			return apply()
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	return updated, nil
}

// Delete removes the row, runs apply, then commits.
func (r *PGRepo) Delete(ctx context.Context, id int64, apply func() error) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
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
		if apply != nil {
			return apply()
		}
		return nil
	})
}

func (r *PGRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			telemetry.Error("documents.rollback_failed", map[string]any{"error": rbErr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errCommit, err)
	}
	return nil
}

// errCommit marks failures that happened after apply succeeded.
var errCommit = errors.New("commit document change")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&doc.StoragePath,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.CreatedAt,
	)
	return doc, err
}
