package util

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var reDocumentKey = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

// NewDocumentKey returns a random key used for uploaded documents, their S3
// objects and queue correlation ids.
func NewDocumentKey() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate document key: %w", err)
	}
	return id, nil
}

// IsDocumentKey reports whether s has the shape produced by NewDocumentKey.
func IsDocumentKey(s string) bool {
	return reDocumentKey.MatchString(s)
}
