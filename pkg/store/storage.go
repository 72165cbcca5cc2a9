package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
)

// ErrDocumentNotFound is returned when no document has the given key.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStatus tracks a document through the processing queue.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// StoredDocument is the persisted outcome of a processing run.
type StoredDocument struct {
	Key            string                           `json:"key"`
	Title          string                           `json:"title"`
	Status         DocumentStatus                   `json:"status"`
	DocumentID     string                           `json:"document_id,omitempty"`
	Namespace      string                           `json:"namespace,omitempty"`
	Sentences      int                              `json:"sentences"`
	TriplesCount   int                              `json:"triples_count"`
	Clusters       int                              `json:"clusters"`
	LinkedClusters int                              `json:"linked_clusters"`
	Linked         bool                             `json:"linked"`
	Errors         []common.ErrorRecord             `json:"errors"`
	Warnings       []common.ClusterReferenceWarning `json:"warnings"`
	Failure        string                           `json:"failure,omitempty"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
}

// StoredStatement is one statement of a document graph with its terms in
// N-Triples syntax.
type StoredStatement struct {
	Position  int    `json:"position"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Source    int    `json:"source"`
}

// GraphStorage defines the interface for persisting processed documents and
// their linked graphs.
type GraphStorage interface {
	CreateDocument(ctx context.Context, key string, title string) error
	UpdateDocumentStatus(ctx context.Context, key string, status DocumentStatus, failure string) error
	// SaveDocument stores the result of a run and replaces the statements
	// of the document. doc may be nil when no graph was assembled.
	SaveDocument(ctx context.Context, key string, result *common.DocumentResult, doc *graph.DocumentGraph, failure error) error
	GetDocument(ctx context.Context, key string) (*StoredDocument, error)
	GetStatements(ctx context.Context, key string) ([]StoredStatement, error)
	DeleteDocument(ctx context.Context, key string) error
}
