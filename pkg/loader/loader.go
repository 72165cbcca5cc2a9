package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/amrlink/pkg/common"

	"github.com/go-playground/validator"
	"golang.org/x/sync/singleflight"
)

// DocumentLoader defines the interface for loading the raw contents of a
// document. Implementations may load from disk, cloud storage, or other
// sources.
type DocumentLoader interface {
	GetDocumentBytes(ctx context.Context, path string) ([]byte, error)
}

// Load fetches the document at path with l and parses it.
//
// Example:
//
//	doc, err := loader.Load(ctx, io.NewIODocumentLoader(), "article.json")
//	if err != nil {
//		log.Fatal(err)
//	}
func Load(ctx context.Context, l DocumentLoader, path string) (common.Document, error) {
	b, err := l.GetDocumentBytes(ctx, path)
	if err != nil {
		return common.Document{}, fmt.Errorf("failed to load document %s: %w", path, err)
	}
	doc, err := ParseDocument(bytes.NewReader(b))
	if err != nil {
		return common.Document{}, fmt.Errorf("document %s: %w", path, err)
	}
	return doc, nil
}

var validate = validator.New()

// ParseDocument decodes a JSON document and validates that it has at least
// one sentence and that every sentence carries its metadata-annotated AMR.
func ParseDocument(r io.Reader) (common.Document, error) {
	var doc common.Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return common.Document{}, fmt.Errorf("invalid document json: %w", err)
	}
	if err := ValidateDocument(doc); err != nil {
		return common.Document{}, err
	}
	return doc, nil
}

// ValidateDocument checks the invariants the pipeline relies on.
func ValidateDocument(doc common.Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	for i, s := range doc.Sentences {
		if strings.TrimSpace(s.AMRWithMetadata) == "" {
			return fmt.Errorf("invalid document: sentence %d has no amr", i)
		}
	}
	return nil
}

// Cache memoizes loaded documents by key. Concurrent loads of the same key
// share one fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the cached bytes for key or calls fetch once to fill them.
func (c *Cache) Get(key string, fetch func() ([]byte, error)) ([]byte, error) {
	c.mu.RLock()
	if cached, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		if cached, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		b, err := fetch()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
