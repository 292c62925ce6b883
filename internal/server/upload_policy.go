package server

import (
	"fmt"
	"mime"
	"sort"
	"strings"
)

// Rejection reasons reported by UploadPolicy.
const (
	RejectReasonUnsupportedType = "unsupported_type"
	RejectReasonTooLarge        = "too_large"
)

// ValidationError reports why an upload was rejected by policy.
type ValidationError struct {
	Reason    string
	MediaType string
	SizeBytes int64
	MaxBytes  int64
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case RejectReasonUnsupportedType:
		if e.MediaType == "" {
			return "media type is required"
		}
		return fmt.Sprintf("media type %q is not allowed", e.MediaType)
	case RejectReasonTooLarge:
		return fmt.Sprintf("file size %d exceeds the %d byte limit", e.SizeBytes, e.MaxBytes)
	default:
		return "upload rejected"
	}
}

// UploadPolicy decides which uploads are accepted. It validates declared
// metadata only and never inspects content bytes. An empty allow-list
// accepts any media type; a non-positive max accepts any size.
type UploadPolicy struct {
	allowedMediaTypes map[string]struct{}
	maxSizeBytes      int64
}

// NewUploadPolicy builds a policy from a media type allow-list and a size
// cap in bytes. Entries that do not parse as media types are ignored.
func NewUploadPolicy(allowedMediaTypes []string, maxSizeBytes int64) *UploadPolicy {
	normalized := map[string]struct{}{}
	for _, raw := range allowedMediaTypes {
		mediaType, err := normalizeMediaType(raw)
		if err != nil || mediaType == "" {
			continue
		}
		normalized[mediaType] = struct{}{}
	}
	if len(normalized) == 0 {
		normalized = nil
	}
	return &UploadPolicy{allowedMediaTypes: normalized, maxSizeBytes: maxSizeBytes}
}

// Check validates one upload's declared media type and size. The media
// type is checked first so an oversized file of a disallowed type reports
// unsupported_type. Returns *ValidationError on rejection.
func (p *UploadPolicy) Check(mediaType string, sizeBytes int64) error {
	if p == nil {
		return nil
	}

	normalized, err := normalizeMediaType(mediaType)
	if err != nil {
		return &ValidationError{Reason: RejectReasonUnsupportedType, MediaType: strings.TrimSpace(mediaType)}
	}
	if len(p.allowedMediaTypes) > 0 {
		if _, ok := p.allowedMediaTypes[normalized]; !ok {
			return &ValidationError{Reason: RejectReasonUnsupportedType, MediaType: normalized}
		}
	}

	if p.maxSizeBytes > 0 && sizeBytes > p.maxSizeBytes {
		return &ValidationError{Reason: RejectReasonTooLarge, SizeBytes: sizeBytes, MaxBytes: p.maxSizeBytes}
	}
	return nil
}

// AllowedMediaTypes returns the allow-list sorted for display.
func (p *UploadPolicy) AllowedMediaTypes() []string {
	if p == nil || len(p.allowedMediaTypes) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.allowedMediaTypes))
	for mediaType := range p.allowedMediaTypes {
		out = append(out, mediaType)
	}
	sort.Strings(out)
	return out
}

// MaxSizeBytes returns the size cap, or 0 when uncapped.
func (p *UploadPolicy) MaxSizeBytes() int64 {
	if p == nil || p.maxSizeBytes <= 0 {
		return 0
	}
	return p.maxSizeBytes
}

func normalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("invalid media_type")
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}
