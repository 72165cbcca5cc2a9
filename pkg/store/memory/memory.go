// Package memory implements store.GraphStorage in process memory. It backs
// the command line tool and tests; restarting the process loses everything.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
	"github.com/OFFIS-RIT/amrlink/pkg/store"
)

type entry struct {
	doc        store.StoredDocument
	statements []store.StoredStatement
}

type GraphStorage struct {
	mu        sync.RWMutex
	documents map[string]*entry
	now       func() time.Time
}

func NewGraphStorage() *GraphStorage {
	return &GraphStorage{
		documents: make(map[string]*entry),
		now:       time.Now,
	}
}

func (s *GraphStorage) CreateDocument(_ context.Context, key string, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.documents[key]; ok {
		e.doc.Title = title
		e.doc.UpdatedAt = now
		return nil
	}
	s.documents[key] = &entry{doc: store.StoredDocument{
		Key:       key,
		Title:     title,
		Status:    store.StatusPending,
		Errors:    []common.ErrorRecord{},
		Warnings:  []common.ClusterReferenceWarning{},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	return nil
}

func (s *GraphStorage) UpdateDocumentStatus(_ context.Context, key string, status store.DocumentStatus, failure string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.documents[key]
	if !ok {
		return store.ErrDocumentNotFound
	}
	e.doc.Status = status
	e.doc.Failure = failure
	e.doc.UpdatedAt = s.now()
	return nil
}

func (s *GraphStorage) SaveDocument(
	_ context.Context,
	key string,
	result *common.DocumentResult,
	doc *graph.DocumentGraph,
	failure error,
) error {
	if result == nil {
		return errors.New("save document: result is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.documents[key]
	if !ok {
		return store.ErrDocumentNotFound
	}

	e.doc.Status = store.StatusCompleted
	e.doc.Failure = ""
	if failure != nil {
		e.doc.Status = store.StatusFailed
		e.doc.Failure = failure.Error()
	}
	e.doc.DocumentID = result.DocumentID
	e.doc.Namespace = result.Namespace.String()
	e.doc.Sentences = result.Sentences
	e.doc.TriplesCount = result.TriplesCount
	e.doc.Clusters = result.Clusters
	e.doc.LinkedClusters = result.LinkedClusters
	e.doc.Linked = result.Linked
	e.doc.Errors = store.ErrorRecords(result.Errors)
	e.doc.Warnings = append([]common.ClusterReferenceWarning{}, result.Warnings...)
	e.doc.UpdatedAt = s.now()
	e.statements = store.StatementsFromGraph(doc)
	return nil
}

func (s *GraphStorage) GetDocument(_ context.Context, key string) (*store.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.documents[key]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	doc := e.doc
	return &doc, nil
}

func (s *GraphStorage) GetStatements(_ context.Context, key string) ([]store.StoredStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.documents[key]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return append([]store.StoredStatement{}, e.statements...), nil
}

func (s *GraphStorage) DeleteDocument(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[key]; !ok {
		return store.ErrDocumentNotFound
	}
	delete(s.documents, key)
	return nil
}

var _ store.GraphStorage = (*GraphStorage)(nil)
