package util

import "testing"

func TestNewDocumentKey(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		key, err := NewDocumentKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !IsDocumentKey(key) {
			t.Fatalf("key %q does not look like a document key", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestIsDocumentKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{key: "V1StGXR8_Z5jdHi6B-myT", valid: true},
		{key: "short", valid: false},
		{key: "V1StGXR8_Z5jdHi6B-my/", valid: false},
		{key: "", valid: false},
	}
	for _, tt := range tests {
		if got := IsDocumentKey(tt.key); got != tt.valid {
			t.Fatalf("IsDocumentKey(%q) = %v, want %v", tt.key, got, tt.valid)
		}
	}
}
