package store

import "context"

// Info summarizes the store's contents.
//
// TotalSizeBytes counts every accepted upload; UniqueSizeBytes counts the
// deduplicated bytes actually held in the blob store. The difference is what
// content addressing saved.
type Info struct {
	SchemaVersion   int   `json:"schema_version"`
	FileCount       int64 `json:"file_count"`
	BlobCount       int64 `json:"blob_count"`
	TotalSizeBytes  int64 `json:"total_size_bytes"`
	UniqueSizeBytes int64 `json:"unique_size_bytes"`
}

// StoreInfo reports schema version plus file and blob counts and sizes.
func (s *Store) StoreInfo(ctx context.Context) (*Info, error) {
	version, err := currentVersion(s.db)
	if err != nil {
		return nil, err
	}

	info := &Info{SchemaVersion: version}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files").
		Scan(&info.FileCount, &info.TotalSizeBytes)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM blobs").
		Scan(&info.BlobCount, &info.UniqueSizeBytes)
	if err != nil {
		return nil, err
	}

	return info, nil
}
