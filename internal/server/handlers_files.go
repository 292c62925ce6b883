package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"depot/internal/api"
	"depot/internal/models"
)

const (
	uploadMultipartMemory = 8 << 20  // 8 MiB
	uploadFormOverhead    = 1 << 20  // 1 MiB for multipart boilerplate
	fallbackUploadMaxBody = 64 << 20 // 64 MiB when the policy is uncapped
)

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		result, err := s.ingestMultipart(w, r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, fileResponseWithDigest(result.File, result.Blob))
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", defaultListLimit)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	files, err := s.retrieval.ListRecent(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]api.FileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, fileResponse(file))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	file, blob, err := s.retrieval.DescribeFile(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fileResponseWithDigest(file, blob))
}

func (s *Server) handleGetFileContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	disposition := "inline"
	if r.URL.Query().Get("download") == "1" {
		disposition = "attachment"
	}
	s.serveFileContent(w, r, id, disposition)
}

// ingestMultipart parses the multipart form and runs the ingest path.
// Shared by the JSON API and the browser form.
func (s *Server) ingestMultipart(w http.ResponseWriter, r *http.Request) (IngestResult, error) {
	var zero IngestResult

	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBody())
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		return zero, classifyMultipartError(err)
	}

	file, header, err := r.FormFile("content")
	if err != nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}
	defer file.Close()

	return s.ingest.Ingest(r.Context(), IngestInput{
		Name:      firstNonEmpty(r.FormValue("name"), header.Filename),
		MediaType: firstNonEmpty(r.FormValue("media_type"), header.Header.Get("Content-Type")),
		SizeBytes: header.Size,
	}, file)
}

// uploadMaxBody caps the request body at the policy limit plus room for
// the multipart framing and form fields.
func (s *Server) uploadMaxBody() int64 {
	if max := s.policy.MaxSizeBytes(); max > 0 {
		return max + uploadFormOverhead
	}
	return fallbackUploadMaxBody
}

func (s *Server) serveFileContent(w http.ResponseWriter, r *http.Request, id, disposition string) {
	content, err := s.retrieval.OpenContent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, sanitizeFilename(content.Filename)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Reader); err != nil {
		// Headers are already out; the client can compare Content-Length
		// against what it received.
		s.log().Debug("stream file content", "id", id, "error", err)
	}
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func fileResponse(file models.File) api.FileResponse {
	return api.FileResponse{
		ID:        file.ID,
		Name:      file.Name,
		MediaType: file.MediaType,
		SizeBytes: file.SizeBytes,
		BlobID:    file.BlobID,
		CreatedAt: file.CreatedAt,
	}
}

func fileResponseWithDigest(file models.File, blob models.Blob) api.FileResponse {
	resp := fileResponse(file)
	resp.Digest = blob.Digest
	return resp
}
