package server

import (
	"regexp"
	"strings"
)

var (
	fileIDRegex = regexp.MustCompile(`^fl-[0-9a-z]{6}$`)
	blobIDRegex = regexp.MustCompile(`^bl-[0-9a-z]{6}$`)
)

func validateFileID(id string) bool {
	return fileIDRegex.MatchString(id)
}

func validateBlobID(id string) bool {
	return blobIDRegex.MatchString(id)
}

const fallbackDownloadName = "download"

// sanitizeFilename makes a stored name safe for a Content-Disposition
// header: path separators become underscores, control characters and
// leading dots are dropped, double quotes become single quotes.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
		case r == '"':
			b.WriteRune('\'')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	if out == "" {
		return fallbackDownloadName
	}
	return out
}
