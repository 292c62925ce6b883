package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
)

const recentUploadsCount = 5

//go:embed templates/*
var templateFS embed.FS

var uploadTemplate = template.Must(template.ParseFS(templateFS, "templates/upload.html"))

type uploadPageFile struct {
	ID        string
	Name      string
	MediaType string
	Size      string
	Uploaded  string
}

type uploadPageData struct {
	Error        string
	UploadedID   string
	UploadedName string
	Allowed      []string
	MaxSize      string
	Recent       []uploadPageFile
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	var data uploadPageData
	if id := strings.TrimSpace(r.URL.Query().Get("uploaded")); validateFileID(id) {
		if file, err := s.store.GetFile(r.Context(), id); err == nil && file != nil {
			data.UploadedID = file.ID
			data.UploadedName = file.Name
		}
	}
	s.renderUploadPage(w, r, http.StatusOK, data)
}

// handleUploadSubmit accepts the browser form. Accepted uploads redirect
// back to the form so a reload does not resubmit; rejected ones re-render
// the form with the failure message.
func (s *Server) handleUploadSubmit(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		result, err := s.ingestMultipart(w, r)
		if err == nil {
			http.Redirect(w, r, "/upload?uploaded="+url.QueryEscape(result.File.ID), http.StatusSeeOther)
			return
		}

		status := httpStatusFromError(err)
		if status >= 500 {
			s.log().Error("form upload failed", "error", err)
			s.renderUploadPage(w, r, http.StatusInternalServerError, uploadPageData{Error: "upload failed"})
			return
		}
		s.log().Debug("form upload rejected", "status", status, "error", err)
		s.renderUploadPage(w, r, http.StatusOK, uploadPageData{Error: err.Error()})
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	s.serveFileContent(w, r, id, "attachment")
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	s.serveFileContent(w, r, id, "inline")
}

func (s *Server) renderUploadPage(w http.ResponseWriter, r *http.Request, status int, data uploadPageData) {
	files, err := s.retrieval.ListRecent(r.Context(), recentUploadsCount)
	if err != nil {
		s.log().Error("list recent uploads", "error", err)
	}
	for _, file := range files {
		data.Recent = append(data.Recent, uploadPageFile{
			ID:        file.ID,
			Name:      file.Name,
			MediaType: file.MediaType,
			Size:      humanize.IBytes(uint64(file.SizeBytes)),
			Uploaded:  file.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	data.Allowed = s.policy.AllowedMediaTypes()
	if max := s.policy.MaxSizeBytes(); max > 0 {
		data.MaxSize = humanize.IBytes(uint64(max))
	}

	var buf bytes.Buffer
	if err := uploadTemplate.Execute(&buf, data); err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
