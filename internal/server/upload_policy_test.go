package server

import (
	"errors"
	"strings"
	"testing"
)

func testPolicy() *UploadPolicy {
	return NewUploadPolicy([]string{"image/jpeg", "image/png", "image/gif"}, 1024)
}

func TestUploadPolicyCheck(t *testing.T) {
	tests := []struct {
		name       string
		mediaType  string
		sizeBytes  int64
		wantReason string
	}{
		{name: "allowed type under limit", mediaType: "image/png", sizeBytes: 512},
		{name: "allowed type at exact limit", mediaType: "image/jpeg", sizeBytes: 1024},
		{name: "normalizes case", mediaType: "IMAGE/PNG", sizeBytes: 10},
		{name: "strips parameters", mediaType: "image/gif; charset=binary", sizeBytes: 10},
		{name: "disallowed type", mediaType: "text/plain", sizeBytes: 10, wantReason: RejectReasonUnsupportedType},
		{name: "missing type", mediaType: "", sizeBytes: 10, wantReason: RejectReasonUnsupportedType},
		{name: "unparseable type", mediaType: "not a media type", sizeBytes: 10, wantReason: RejectReasonUnsupportedType},
		{name: "oversized", mediaType: "image/png", sizeBytes: 1025, wantReason: RejectReasonTooLarge},
		{name: "disallowed type wins over size", mediaType: "application/zip", sizeBytes: 1 << 30, wantReason: RejectReasonUnsupportedType},
	}

	policy := testPolicy()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Check(tc.mediaType, tc.sizeBytes)
			if tc.wantReason == "" {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if vErr.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, vErr.Reason)
			}
		})
	}
}

func TestUploadPolicyUnconfigured(t *testing.T) {
	t.Run("nil policy accepts anything", func(t *testing.T) {
		var policy *UploadPolicy
		if err := policy.Check("application/zip", 1<<40); err != nil {
			t.Fatalf("expected nil policy to accept, got %v", err)
		}
	})

	t.Run("empty allow-list accepts any parseable type", func(t *testing.T) {
		policy := NewUploadPolicy(nil, 100)
		if err := policy.Check("application/zip", 50); err != nil {
			t.Fatalf("expected accept, got %v", err)
		}
		if err := policy.Check("application/zip", 101); err == nil {
			t.Fatal("expected too_large rejection")
		}
	})

	t.Run("non-positive max is uncapped", func(t *testing.T) {
		policy := NewUploadPolicy([]string{"image/png"}, 0)
		if err := policy.Check("image/png", 1<<40); err != nil {
			t.Fatalf("expected accept, got %v", err)
		}
		if policy.MaxSizeBytes() != 0 {
			t.Fatalf("expected MaxSizeBytes 0, got %d", policy.MaxSizeBytes())
		}
	})
}

func TestUploadPolicyAllowedMediaTypes(t *testing.T) {
	policy := NewUploadPolicy([]string{"image/PNG", "image/jpeg", "bogus media type", "image/jpeg"}, 0)
	got := policy.AllowedMediaTypes()
	want := []string{"image/jpeg", "image/png"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestValidationErrorMessages(t *testing.T) {
	unsupported := &ValidationError{Reason: RejectReasonUnsupportedType, MediaType: "text/plain"}
	if !strings.Contains(unsupported.Error(), "text/plain") {
		t.Fatalf("expected media type in message, got %q", unsupported.Error())
	}

	missing := &ValidationError{Reason: RejectReasonUnsupportedType}
	if missing.Error() != "media type is required" {
		t.Fatalf("unexpected message %q", missing.Error())
	}

	tooLarge := &ValidationError{Reason: RejectReasonTooLarge, SizeBytes: 200, MaxBytes: 100}
	if !strings.Contains(tooLarge.Error(), "200") || !strings.Contains(tooLarge.Error(), "100") {
		t.Fatalf("expected sizes in message, got %q", tooLarge.Error())
	}
}
