package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"depot/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testDigest(seed string) string {
	return strings.Repeat(seed, 32)
}

func TestCreateFileWithBlobAndGet(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	blob := &models.Blob{
		Digest:    testDigest("ab"),
		SizeBytes: 42,
		BlobKey:   "blake2b/ab/ab/" + testDigest("ab"),
	}
	file := &models.File{
		Name:      "cat.png",
		MediaType: "image/png",
		SizeBytes: 42,
		CreatedAt: now,
	}

	canonical, err := st.CreateFileWithBlob(ctx, blob, file)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if canonical == nil {
		t.Fatal("expected canonical blob, got nil")
	}
	if len(file.ID) != 9 || file.ID[:3] != "fl-" {
		t.Fatalf("expected generated fl- id, got %q", file.ID)
	}
	if len(canonical.ID) != 9 || canonical.ID[:3] != "bl-" {
		t.Fatalf("expected generated bl- id, got %q", canonical.ID)
	}
	if canonical.StorageBackend != "local_cas" {
		t.Fatalf("expected default backend local_cas, got %q", canonical.StorageBackend)
	}

	got, err := st.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected file, got nil")
	}
	if got.Name != "cat.png" {
		t.Fatalf("expected name 'cat.png', got %q", got.Name)
	}
	if got.MediaType != "image/png" {
		t.Fatalf("expected media type 'image/png', got %q", got.MediaType)
	}
	if got.SizeBytes != 42 {
		t.Fatalf("expected 42 bytes, got %d", got.SizeBytes)
	}
	if got.BlobID != canonical.ID {
		t.Fatalf("expected blob id %q, got %q", canonical.ID, got.BlobID)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, got.CreatedAt)
	}
}

func TestCreateFileWithBlobDeduplicatesByDigest(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	digest := testDigest("cd")
	key := "blake2b/cd/cd/" + digest

	first := &models.File{Name: "one.gif", MediaType: "image/gif", SizeBytes: 7}
	firstBlob, err := st.CreateFileWithBlob(ctx, &models.Blob{Digest: digest, SizeBytes: 7, BlobKey: key}, first)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := &models.File{Name: "two.gif", MediaType: "image/gif", SizeBytes: 7}
	secondBlob, err := st.CreateFileWithBlob(ctx, &models.Blob{Digest: digest, SizeBytes: 7, BlobKey: key}, second)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("expected distinct file ids, both %q", first.ID)
	}
	if firstBlob.ID != secondBlob.ID {
		t.Fatalf("expected shared blob row, got %q and %q", firstBlob.ID, secondBlob.ID)
	}

	other := &models.File{Name: "three.gif", MediaType: "image/gif", SizeBytes: 9}
	otherBlob, err := st.CreateFileWithBlob(ctx, &models.Blob{Digest: testDigest("ef"), SizeBytes: 9, BlobKey: "blake2b/ef/ef/" + testDigest("ef")}, other)
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	if otherBlob.ID == firstBlob.ID {
		t.Fatal("expected distinct blob row for distinct digest")
	}
}

func TestCreateFileWithBlobValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	validBlob := func() *models.Blob {
		return &models.Blob{Digest: testDigest("aa"), SizeBytes: 1, BlobKey: "blake2b/aa/aa/" + testDigest("aa")}
	}
	validFile := func() *models.File {
		return &models.File{Name: "f.png", MediaType: "image/png", SizeBytes: 1}
	}

	cases := []struct {
		name string
		blob *models.Blob
		file *models.File
	}{
		{"nil blob", nil, validFile()},
		{"nil file", validBlob(), nil},
		{"empty digest", &models.Blob{BlobKey: "k", SizeBytes: 1}, validFile()},
		{"empty blob key", &models.Blob{Digest: testDigest("aa"), SizeBytes: 1}, validFile()},
		{"negative blob size", &models.Blob{Digest: testDigest("aa"), SizeBytes: -1, BlobKey: "k"}, validFile()},
		{"empty name", validBlob(), &models.File{MediaType: "image/png", SizeBytes: 1}},
		{"empty media type", validBlob(), &models.File{Name: "f.png", SizeBytes: 1}},
		{"negative file size", validBlob(), &models.File{Name: "f.png", MediaType: "image/png", SizeBytes: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := st.CreateFileWithBlob(ctx, tc.blob, tc.file); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGetFileMissingReturnsNil(t *testing.T) {
	st := testStore(t)

	got, err := st.GetFile(context.Background(), "fl-nosuch")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing file, got %+v", got)
	}
}

func TestGetBlobByDigestNormalizesCase(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	digest := testDigest("0f")
	file := &models.File{Name: "x.jpg", MediaType: "image/jpeg", SizeBytes: 3}
	if _, err := st.CreateFileWithBlob(ctx, &models.Blob{Digest: digest, SizeBytes: 3, BlobKey: "blake2b/0f/0f/" + digest}, file); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetBlobByDigest(ctx, "  "+strings.ToUpper(digest)+" ")
	if err != nil {
		t.Fatalf("get by digest: %v", err)
	}
	if got == nil {
		t.Fatal("expected blob, got nil")
	}
	if got.Digest != digest {
		t.Fatalf("expected digest %q, got %q", digest, got.Digest)
	}
}

func TestListRecentFilesOrdersNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	seeds := []string{"a1", "b2", "c3", "d4", "e5", "f6", "a7"}
	for i, seed := range seeds {
		digest := testDigest(seed)
		file := &models.File{
			Name:      seed + ".png",
			MediaType: "image/png",
			SizeBytes: int64(i + 1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		blob := &models.Blob{Digest: digest, SizeBytes: int64(i + 1), BlobKey: "blake2b/xx/yy/" + digest}
		if _, err := st.CreateFileWithBlob(ctx, blob, file); err != nil {
			t.Fatalf("create %s: %v", seed, err)
		}
	}

	recent, err := st.ListRecentFiles(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected 5 files, got %d", len(recent))
	}
	wantNames := []string{"a7.png", "f6.png", "e5.png", "d4.png", "c3.png"}
	for i, want := range wantNames {
		if recent[i].Name != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, recent[i].Name)
		}
	}

	all, err := st.ListRecentFiles(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != len(seeds) {
		t.Fatalf("expected %d files, got %d", len(seeds), len(all))
	}
}

func TestListRecentFilesBreaksTiesOnID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, id := range []string{"fl-aaa111", "fl-zzz999", "fl-mmm555"} {
		digest := testDigest(id[3:5])
		file := &models.File{
			ID:        id,
			Name:      id + ".png",
			MediaType: "image/png",
			SizeBytes: 1,
			CreatedAt: now,
		}
		blob := &models.Blob{Digest: digest, SizeBytes: 1, BlobKey: "blake2b/xx/yy/" + digest}
		if _, err := st.CreateFileWithBlob(ctx, blob, file); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	recent, err := st.ListRecentFiles(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	wantIDs := []string{"fl-zzz999", "fl-mmm555", "fl-aaa111"}
	if len(recent) != len(wantIDs) {
		t.Fatalf("expected %d files, got %d", len(wantIDs), len(recent))
	}
	for i, want := range wantIDs {
		if recent[i].ID != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, recent[i].ID)
		}
	}
}

func TestFilesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	digest := testDigest("9c")
	file := &models.File{Name: "keep.jpg", MediaType: "image/jpeg", SizeBytes: 11}
	if _, err := st.CreateFileWithBlob(ctx, &models.Blob{Digest: digest, SizeBytes: 11, BlobKey: "blake2b/9c/9c/" + digest}, file); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, err := st2.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got == nil {
		t.Fatal("expected file to survive reopen")
	}
	if got.Name != "keep.jpg" {
		t.Fatalf("expected name 'keep.jpg', got %q", got.Name)
	}

	blob, err := st2.GetBlob(ctx, got.BlobID)
	if err != nil {
		t.Fatalf("get blob after reopen: %v", err)
	}
	if blob == nil || blob.Digest != digest {
		t.Fatalf("expected blob with digest %q after reopen, got %+v", digest, blob)
	}
}
