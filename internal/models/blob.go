package models

import "time"

// Blob is an immutable stored content object referenced by file records.
// Uploads with identical bytes converge on one blob row; each upload still
// gets its own File record.
type Blob struct {
	ID             string    `json:"id"`
	Digest         string    `json:"digest"`
	SizeBytes      int64     `json:"size_bytes"`
	StorageBackend string    `json:"storage_backend"`
	BlobKey        string    `json:"blob_key"`
	CreatedAt      time.Time `json:"created_at"`
}
