package documents

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidInput  = errors.New("invalid document input")
	ErrSourceMissing = errors.New("original file does not exist")
	ErrTargetExists  = errors.New("a file with that name already exists")
	ErrFileMissing   = errors.New("file not found")

	// ErrNotExtractable marks documents without a text representation.
	ErrNotExtractable = errors.New("document has no extractable text")
)

// DocumentsRepo defines persistence operations for documents.
//
// Update and Delete take an apply hook that performs the matching file
// operation while the row change is still uncommitted. If apply fails the
// row change is rolled back.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, id int64) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Update(ctx context.Context, doc Document, apply func() error) (Document, error)
	Delete(ctx context.Context, id int64, apply func() error) error
}
