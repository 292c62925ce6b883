package blobstore

import (
	"context"
	"io"
)

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	Digest    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore is the byte-storage abstraction used by the ingest and
// retrieval services. File records are never deleted, so the surface is
// write-once, read-many.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
