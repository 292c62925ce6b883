package models

import "time"

// File is one accepted upload: the uploader-facing metadata for a stored
// payload. Records are immutable after creation and are never deleted; the
// payload bytes live in the blob store and are referenced through BlobID.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MediaType string    `json:"media_type"`
	SizeBytes int64     `json:"size_bytes"`
	BlobID    string    `json:"blob_id"`
	CreatedAt time.Time `json:"created_at"`
}
