package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// UploadRequest defines metadata for multipart uploads. Both fields are
// optional: the filename and declared content type of the multipart part are
// used when they are empty.
type UploadRequest struct {
	Name      string `json:"name,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// FileResponse is the file representation returned by the API. Digest is
// filled on create and single-file lookups, not in listings.
type FileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MediaType string    `json:"media_type"`
	SizeBytes int64     `json:"size_bytes"`
	BlobID    string    `json:"blob_id"`
	Digest    string    `json:"digest,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	DBPath          string `json:"db_path"`
	SchemaVersion   int    `json:"schema_version"`
	FileCount       int64  `json:"file_count"`
	BlobCount       int64  `json:"blob_count"`
	TotalSizeBytes  int64  `json:"total_size_bytes"`
	UniqueSizeBytes int64  `json:"unique_size_bytes"`
}
