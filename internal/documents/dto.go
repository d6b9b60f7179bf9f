package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"filename"`
	StoragePath string    `json:"path"`
	MimeType    string    `json:"mimetype"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UpdateRequest carries the optional new filename for PATCH /documents/:id.
type UpdateRequest struct {
	FileName *string `json:"filename"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		FileName:    doc.FileName,
		StoragePath: doc.StoragePath,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
	}
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
