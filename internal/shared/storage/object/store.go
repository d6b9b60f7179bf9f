package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned when a write or rename would overwrite an object.
	ErrExists = errors.New("object already exists")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// Keys are slash-separated and relative to the store root.
type ObjectStore interface {
	Save(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Rename moves from to to. It fails with ErrNotFound when from is missing
	// and ErrExists when to is taken.
	Rename(ctx context.Context, from, to string) error
	// Remove deletes key. A missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// CleanKey normalizes key and rejects absolute or escaping paths.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if k == "" || strings.HasPrefix(k, "/") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(k)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
