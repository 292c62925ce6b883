package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"depot/internal/api"
	"depot/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeFileList(files []api.FileResponse) error {
	for _, file := range files {
		if err := writePlain("%s\n", formatFileLine(file)); err != nil {
			return err
		}
	}
	return nil
}

func writeFileDetail(file api.FileResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", file.ID),
		fmt.Sprintf("name: %s", file.Name),
		fmt.Sprintf("media_type: %s", file.MediaType),
		fmt.Sprintf("size: %s (%d bytes)", formatSize(file.SizeBytes), file.SizeBytes),
		fmt.Sprintf("blob_id: %s", file.BlobID),
	}
	if file.Digest != "" {
		lines = append(lines, fmt.Sprintf("digest: %s", file.Digest))
	}
	lines = append(lines, fmt.Sprintf("created_at: %s", formatTime(file.CreatedAt)))

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatFileLine(file api.FileResponse) string {
	return fmt.Sprintf("%s [%s] %s (%s)", file.ID, file.MediaType, file.Name, formatSize(file.SizeBytes))
}

func formatSize(sizeBytes int64) string {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	return humanize.IBytes(uint64(sizeBytes))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
