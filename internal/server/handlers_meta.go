package server

import (
	"net/http"

	"depot/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.InfoResponse{
		DBPath:          s.dbPath,
		SchemaVersion:   info.SchemaVersion,
		FileCount:       info.FileCount,
		BlobCount:       info.BlobCount,
		TotalSizeBytes:  info.TotalSizeBytes,
		UniqueSizeBytes: info.UniqueSizeBytes,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
