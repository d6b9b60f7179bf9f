package documents

import "time"

// Document is the metadata record for one stored file. StoragePath is the
// object-store key and always names the file that holds the bytes.
type Document struct {
	ID          int64
	FileName    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
	CreatedAt   time.Time
}
