package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"docmgmt-backend/internal/extract"
	"docmgmt-backend/internal/shared/metrics"
	"docmgmt-backend/internal/shared/storage/object"
	"docmgmt-backend/internal/shared/telemetry"
	"docmgmt-backend/internal/shared/util"
)

const (
	sniffLen        = 3072
	genericMimeType = "application/octet-stream"
	saveAttempts    = 3

	// maxStoredNameLen matches the common filesystem limit for one path element.
	maxStoredNameLen = 255
	maxStoredExtLen  = 16
)

// Service keeps document metadata and stored files consistent.
type Service struct {
	Store object.ObjectStore
	Repo  DocumentsRepo

	now func() time.Time
}

func NewService(store object.ObjectStore, repo DocumentsRepo) *Service {
	return &Service{Store: store, Repo: repo, now: time.Now}
}

// UploadInput describes an incoming file.
type UploadInput struct {
	OriginalName string
	MimeType     string
	Body         io.Reader
}

// Upload writes the file first and records metadata after. If recording
// fails the written file is removed.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	original, err := util.SanitizeFileName(in.OriginalName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if in.Body == nil {
		return Document{}, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	mimeType, body, err := resolveMimeType(in.MimeType, in.Body)
	if err != nil {
		return Document{}, err
	}

	var (
		key  string
		size int64
	)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		key = StoredFileName(original, s.clock())
		size, err = s.Store.Save(ctx, key, mimeType, body)
		if !errors.Is(err, object.ErrExists) {
			break
		}
	}
	if err != nil {
		return Document{}, fmt.Errorf("save file: %w", err)
	}

	doc, err := s.Repo.Create(ctx, Document{
		FileName:    key,
		StoragePath: key,
		MimeType:    mimeType,
		SizeBytes:   size,
	})
	if err != nil {
		if rmErr := s.Store.Remove(ctx, key); rmErr != nil {
			telemetry.Error("documents.orphan_cleanup_failed", map[string]any{
				"storage_path": key,
				"error":        rmErr,
			})
		}
		return Document{}, err
	}

	metrics.IncDocumentUploaded()
	telemetry.Info("documents.uploaded", map[string]any{
		"document_id": doc.ID,
		"size_bytes":  doc.SizeBytes,
		"mimetype":    doc.MimeType,
	})
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	if id <= 0 {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns every document, ordered by id.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// Open returns the record and a reader over its file. The caller closes the reader.
func (s *Service) Open(ctx context.Context, id int64) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrFileMissing
		}
		return Document{}, nil, err
	}
	return doc, rc, nil
}

// Text returns the plain-text content of a PDF, DOCX or text document.
func (s *Service) Text(ctx context.Context, id int64) (Document, string, error) {
	doc, rc, err := s.Open(ctx, id)
	if err != nil {
		return Document{}, "", err
	}
	defer rc.Close()

	text, err := extract.Text(ctx, rc, doc.MimeType, doc.FileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) || errors.Is(err, extract.ErrTooLarge) {
			return Document{}, "", fmt.Errorf("%w: %w", ErrNotExtractable, err)
		}
		return Document{}, "", err
	}
	return doc, text, nil
}

// Update renames the document when a filename is supplied. Without one the
// record is returned unchanged.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if req.FileName == nil || strings.TrimSpace(*req.FileName) == "" {
		return doc, nil
	}
	target, err := util.SanitizeFileName(*req.FileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if target == doc.StoragePath {
		return doc, nil
	}

	if ok, err := s.Store.Exists(ctx, doc.StoragePath); err != nil {
		return Document{}, err
	} else if !ok {
		return Document{}, ErrSourceMissing
	}
	if ok, err := s.Store.Exists(ctx, target); err != nil {
		return Document{}, err
	} else if ok {
		return Document{}, ErrTargetExists
	}

	source := doc.StoragePath
	renamed := false
	doc.FileName = target
	doc.StoragePath = target
	updated, err := s.Repo.Update(ctx, doc, func() error {
		if err := s.Store.Rename(ctx, source, target); err != nil {
			return err
		}
		renamed = true
		return nil
	})
	if err != nil {
		if renamed {
			s.undoRename(ctx, id, target, source, err)
		}
		return Document{}, mapStoreError(err)
	}

	metrics.IncDocumentRenamed()
	telemetry.Info("documents.renamed", map[string]any{
		"document_id": id,
		"from":        source,
		"to":          target,
	})
	return updated, nil
}

// Delete removes the record and its file together. An already-missing file
// is skipped; any other removal error keeps the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.Repo.Delete(ctx, id, func() error {
		return s.Store.Remove(ctx, doc.StoragePath)
	})
	if err != nil {
		if errors.Is(err, errCommit) {
			telemetry.Error("documents.delete_commit_failed", map[string]any{
				"document_id":  id,
				"storage_path": doc.StoragePath,
				"error":        err,
			})
		}
		return err
	}
	metrics.IncDocumentDeleted()
	telemetry.Info("documents.deleted", map[string]any{"document_id": id})
	return nil
}

func (s *Service) undoRename(ctx context.Context, id int64, from, to string, cause error) {
	fields := map[string]any{
		"document_id": id,
		"from":        from,
		"to":          to,
		"cause":       cause.Error(),
	}
	if err := s.Store.Rename(context.WithoutCancel(ctx), from, to); err != nil {
		fields["error"] = err
		telemetry.Error("documents.rename_undo_failed", fields)
		return
	}
	telemetry.Warn("documents.rename_undone", fields)
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// StoredFileName builds the on-disk name for an upload:
// <name with whitespace as _>-<unix ms>-<random><ext>. The name part is cut
// on a rune boundary so the result fits in maxStoredNameLen bytes.
func StoredFileName(original string, now time.Time) string {
	base := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, original)
	ext := filepath.Ext(original)
	if len(ext) > maxStoredExtLen {
		ext = ""
	}
	suffix := fmt.Sprintf("-%d-%d%s", now.UnixMilli(), rand.Int64N(1_000_000_000), ext)
	return truncateUTF8(base, maxStoredNameLen-len(suffix)) + suffix
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// ContentTypeFor picks the response type for a download.
func ContentTypeFor(doc Document) string {
	if doc.MimeType != "" {
		return doc.MimeType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(doc.FileName)); byExt != "" {
		return byExt
	}
	return genericMimeType
}

// resolveMimeType keeps a specific declared type and sniffs otherwise. The
// returned reader replays the sniffed prefix.
func resolveMimeType(declared string, r io.Reader) (string, io.Reader, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != genericMimeType {
		return declared, r, nil
	}
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	detected := mimetype.Detect(buf[:n]).String()
	return detected, io.MultiReader(bytes.NewReader(buf[:n]), r), nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, object.ErrNotFound):
		return ErrSourceMissing
	case errors.Is(err, object.ErrExists):
		return ErrTargetExists
	case errors.Is(err, object.ErrInvalidKey):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return err
	}
}
