package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"depot/internal/config"
)

func TestUploadSendsMultipartRequest(t *testing.T) {
	type received struct {
		name      string
		mediaType string
		content   string
	}
	var got received

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
			if err := r.ParseMultipartForm(8 << 20); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"bad form"}`))
				return
			}
			part, _, err := r.FormFile("content")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"missing content"}`))
				return
			}
			defer part.Close()
			payload, _ := io.ReadAll(part)
			got = received{
				name:      r.FormValue("name"),
				mediaType: r.FormValue("media_type"),
				content:   string(payload),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"fl-abc123","name":"cat.png","media_type":"image/png","size_bytes":9,"blob_id":"bl-abc123","created_at":"2026-01-02T03:04:05Z"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write upload file: %v", err)
	}

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.DBPath = "/definitely/not/used.db"

	jsonOutput := false
	cmd := newUploadCmd(&cfg, &jsonOutput)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute upload: %v", err)
	}

	if got.name != "cat.png" {
		t.Fatalf("expected name cat.png, got %q", got.name)
	}
	if got.mediaType != "image/png" {
		t.Fatalf("expected media type guessed from extension, got %q", got.mediaType)
	}
	if got.content != "png-bytes" {
		t.Fatalf("expected file content forwarded, got %q", got.content)
	}
}

func TestUploadNameFlagRequiresSinglePath(t *testing.T) {
	cfg := config.Default()

	jsonOutput := false
	cmd := newUploadCmd(&cfg, &jsonOutput)
	cmd.SetArgs([]string{"--name", "renamed.png", "a.png", "b.png"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for --name with multiple paths")
	}
}

func TestGuessMediaType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "cat.png", want: "image/png"},
		{path: "photos/CAT.PNG", want: "image/png"},
		{path: "archive.gif", want: "image/gif"},
		{path: "noextension", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := guessMediaType(tt.path); got != tt.want {
				t.Fatalf("guessMediaType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
