package pgx

import (
	"time"
)

type Document struct {
	ID             int64
	PublicID       string
	Title          string
	Status         string
	DocumentID     *string
	Namespace      *string
	Sentences      int32
	TriplesCount   int32
	Clusters       int32
	LinkedClusters int32
	Linked         bool
	Errors         []byte
	Warnings       []byte
	Failure        *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type DocumentStatement struct {
	DocumentID int64
	Position   int32
	Subject    string
	Predicate  string
	Object     string
	Source     int32
}
