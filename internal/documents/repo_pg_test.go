package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var docCols = []string{"id", "filename", "storage_path", "mimetype", "size_bytes", "created_at"}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("a.txt", "a.txt", "text/plain", int64(3)).
		WillReturnRows(sqlmock.NewRows(docCols).AddRow(int64(7), "a.txt", "a.txt", "text/plain", int64(3), now))

	doc, err := repo.Create(context.Background(), Document{FileName: "a.txt", StoragePath: "a.txt", MimeType: "text/plain", SizeBytes: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID != 7 || !doc.CreatedAt.Equal(now) {
		t.Fatalf("unexpected doc %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT .* FROM documents WHERE id").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(docCols))

	if _, err := repo.GetByID(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateCommitsAfterApply(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents").
		WithArgs(int64(1), "b.txt", "b.txt").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow(int64(1), "b.txt", "b.txt", "text/plain", int64(3), now))
	mock.ExpectCommit()

	applied := false
	doc, err := repo.Update(context.Background(), Document{ID: 1, FileName: "b.txt", StoragePath: "b.txt"}, func() error {
		applied = true
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !applied || doc.FileName != "b.txt" {
		t.Fatalf("applied=%v doc=%+v", applied, doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateRollsBackOnApplyError(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	hookErr := errors.New("rename failed")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents").
		WillReturnRows(sqlmock.NewRows(docCols).AddRow(int64(1), "b.txt", "b.txt", "text/plain", int64(3), now))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), Document{ID: 1, FileName: "b.txt", StoragePath: "b.txt"}, func() error {
		return hookErr
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	called := false
	err := repo.Delete(context.Background(), 4, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if called {
		t.Fatalf("apply must not run when no row matched")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteCommitFailureIsMarked(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := repo.Delete(context.Background(), 4, nil)
	if !errors.Is(err, errCommit) {
		t.Fatalf("expected errCommit, got %v", err)
	}
}
