package io

import (
	"context"
	"os"

	"github.com/OFFIS-RIT/amrlink/pkg/loader"
)

// IODocumentLoader loads documents directly from the local filesystem with
// caching.
type IODocumentLoader struct {
	cache *loader.Cache
}

// NewIODocumentLoader creates a new filesystem-based document loader.
func NewIODocumentLoader() *IODocumentLoader {
	return &IODocumentLoader{cache: loader.NewCache()}
}

// GetDocumentBytes reads the file at path. Results are cached.
func (l *IODocumentLoader) GetDocumentBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.cache.Get(path, func() ([]byte, error) {
		return os.ReadFile(path)
	})
}
