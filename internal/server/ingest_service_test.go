package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"testing"

	"depot/internal/blobstore"
	"depot/internal/store"
)

func newIngestFixture(t *testing.T) (*IngestService, *store.Store, *blobstore.LocalCAS, string) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "depot-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	casRoot := filepath.Join(t.TempDir(), "blobs")
	bs, err := blobstore.NewLocalCAS(casRoot)
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	return NewIngestService(st, bs, testPolicy(), nil), st, bs, casRoot
}

func casFileCount(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk cas root: %v", err)
	}
	return count
}

func TestIngestAcceptsUpload(t *testing.T) {
	svc, st, bs, _ := newIngestFixture(t)
	ctx := context.Background()
	payload := []byte("png-payload-bytes")

	result, err := svc.Ingest(ctx, IngestInput{Name: "cat.png", MediaType: "image/png", SizeBytes: int64(len(payload))}, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !validateFileID(result.File.ID) {
		t.Fatalf("unexpected file id %q", result.File.ID)
	}
	if result.File.Name != "cat.png" || result.File.MediaType != "image/png" {
		t.Fatalf("unexpected file metadata %+v", result.File)
	}
	if result.File.SizeBytes != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), result.File.SizeBytes)
	}
	if result.File.BlobID != result.Blob.ID {
		t.Fatalf("file blob_id %q does not match blob id %q", result.File.BlobID, result.Blob.ID)
	}
	if result.Blob.Digest == "" {
		t.Fatal("expected blob digest")
	}
	if result.Deduplicated {
		t.Fatal("first ingest should not report deduplication")
	}

	stored, err := st.GetFile(ctx, result.File.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored file row")
	}

	rc, err := bs.Open(ctx, result.Blob.BlobKey)
	if err != nil {
		t.Fatalf("open blob: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored payload mismatch: %q", got)
	}
}

func TestIngestRejectsDisallowedType(t *testing.T) {
	svc, st, _, casRoot := newIngestFixture(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestInput{Name: "notes.txt", MediaType: "text/plain", SizeBytes: 10}, bytes.NewReader([]byte("plain text")))
	if err == nil {
		t.Fatal("expected rejection")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != RejectReasonUnsupportedType {
		t.Fatalf("expected unsupported_type rejection, got %v", err)
	}
	if status := httpStatusFromError(err); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}

	files, err := st.ListRecentFiles(ctx, 10)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no file rows after rejection, got %d", len(files))
	}
	if n := casFileCount(t, casRoot); n != 0 {
		t.Fatalf("expected no blob writes after rejection, found %d files", n)
	}
}

func TestIngestRejectsOversizedUpload(t *testing.T) {
	svc, st, _, casRoot := newIngestFixture(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestInput{Name: "big.png", MediaType: "image/png", SizeBytes: 4096}, bytes.NewReader([]byte("body")))
	if err == nil {
		t.Fatal("expected rejection")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != RejectReasonTooLarge {
		t.Fatalf("expected too_large rejection, got %v", err)
	}
	if errorNumericCode(http.StatusBadRequest, err) != ErrCodeFileTooLarge {
		t.Fatalf("expected error code %d, got %d", ErrCodeFileTooLarge, errorNumericCode(http.StatusBadRequest, err))
	}

	files, err := st.ListRecentFiles(ctx, 10)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no file rows after rejection, got %d", len(files))
	}
	if n := casFileCount(t, casRoot); n != 0 {
		t.Fatalf("expected no blob writes after rejection, found %d files", n)
	}
}

func TestIngestDeduplicatesPayloads(t *testing.T) {
	svc, st, _, _ := newIngestFixture(t)
	ctx := context.Background()
	payload := []byte("identical-payload")

	first, err := svc.Ingest(ctx, IngestInput{Name: "a.png", MediaType: "image/png", SizeBytes: int64(len(payload))}, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.Ingest(ctx, IngestInput{Name: "b.png", MediaType: "image/png", SizeBytes: int64(len(payload))}, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if first.File.ID == second.File.ID {
		t.Fatal("expected distinct file ids")
	}
	if first.File.BlobID != second.File.BlobID {
		t.Fatalf("expected shared blob, got %q and %q", first.File.BlobID, second.File.BlobID)
	}
	if first.Deduplicated {
		t.Fatal("first ingest should not report deduplication")
	}
	if !second.Deduplicated {
		t.Fatal("second ingest should report deduplication")
	}

	files, err := st.ListRecentFiles(ctx, 10)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 file rows, got %d", len(files))
	}
}

func TestIngestRequiresName(t *testing.T) {
	svc, _, _, _ := newIngestFixture(t)

	_, err := svc.Ingest(context.Background(), IngestInput{Name: "  ", MediaType: "image/png", SizeBytes: 4}, bytes.NewReader([]byte("body")))
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	if status := httpStatusFromError(err); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if errorNumericCode(http.StatusBadRequest, err) != ErrCodeMissingRequired {
		t.Fatalf("expected error code %d, got %d", ErrCodeMissingRequired, errorNumericCode(http.StatusBadRequest, err))
	}
}

func TestIngestNormalizesMediaType(t *testing.T) {
	svc, _, _, _ := newIngestFixture(t)

	result, err := svc.Ingest(context.Background(), IngestInput{Name: "cat.png", MediaType: "IMAGE/PNG; foo=bar", SizeBytes: 4}, bytes.NewReader([]byte("body")))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.File.MediaType != "image/png" {
		t.Fatalf("expected normalized media type image/png, got %q", result.File.MediaType)
	}
}
