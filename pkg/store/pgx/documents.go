package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	pgdb "github.com/OFFIS-RIT/amrlink/pkg/db/pgx"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

// CreateDocument registers a document before it is queued. Re-creating an
// existing key keeps its status.
func (s *GraphDBStorage) CreateDocument(ctx context.Context, key string, title string) error {
	_, err := pgdb.New(s.conn).CreateDocument(ctx, pgdb.CreateDocumentParams{
		PublicID: key,
		Title:    util.SanitizePostgresText(title),
		Status:   string(store.StatusPending),
	})
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", key, err)
	}
	return nil
}

func (s *GraphDBStorage) UpdateDocumentStatus(ctx context.Context, key string, status store.DocumentStatus, failure string) error {
	n, err := pgdb.New(s.conn).UpdateDocumentStatus(ctx, pgdb.UpdateDocumentStatusParams{
		PublicID: key,
		Status:   string(status),
		Failure:  optionalText(failure),
	})
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", key, err)
	}
	if n == 0 {
		return store.ErrDocumentNotFound
	}
	return nil
}

// SaveDocument writes the result and statements of a run in one transaction.
// The statements of a previous run are replaced.
func (s *GraphDBStorage) SaveDocument(
	ctx context.Context,
	key string,
	result *common.DocumentResult,
	doc *graph.DocumentGraph,
	failure error,
) error {
	if result == nil {
		return errors.New("save document: result is nil")
	}
	params, err := resultParams(result, failure)
	if err != nil {
		return err
	}
	stmts := store.StatementsFromGraph(doc)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	qtx := pgdb.New(tx)

	row, err := qtx.LockDocumentByPublicID(ctx, key)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return store.ErrDocumentNotFound
		}
		return err
	}
	params.ID = row.ID

	if err := qtx.UpdateDocumentResult(ctx, params); err != nil {
		return fmt.Errorf("failed to update document result: %w", err)
	}
	if err := qtx.DeleteDocumentStatements(ctx, row.ID); err != nil {
		return fmt.Errorf("failed to clear document statements: %w", err)
	}

	err = store.ChunkRange(len(stmts), s.statementChunk, func(start, end int) error {
		rows := make([]pgdb.DocumentStatement, 0, end-start)
		for _, st := range stmts[start:end] {
			rows = append(rows, pgdb.DocumentStatement{
				DocumentID: row.ID,
				Position:   int32(st.Position),
				Subject:    util.SanitizePostgresText(st.Subject),
				Predicate:  util.SanitizePostgresText(st.Predicate),
				Object:     util.SanitizePostgresText(st.Object),
				Source:     int32(st.Source),
			})
		}
		_, err := qtx.InsertDocumentStatements(ctx, rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert document statements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Store][SaveDocument] Saved document", "key", key, "statements", len(stmts), "status", params.Status)
	return nil
}

func (s *GraphDBStorage) GetDocument(ctx context.Context, key string) (*store.StoredDocument, error) {
	row, err := pgdb.New(s.conn).GetDocumentByPublicID(ctx, key)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrDocumentNotFound
		}
		return nil, err
	}
	return storedDocument(row)
}

func (s *GraphDBStorage) GetStatements(ctx context.Context, key string) ([]store.StoredStatement, error) {
	rows, err := pgdb.New(s.conn).ListDocumentStatements(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]store.StoredStatement, len(rows))
	for i, r := range rows {
		out[i] = store.StoredStatement{
			Position:  int(r.Position),
			Subject:   r.Subject,
			Predicate: r.Predicate,
			Object:    r.Object,
			Source:    int(r.Source),
		}
	}
	return out, nil
}

func (s *GraphDBStorage) DeleteDocument(ctx context.Context, key string) error {
	n, err := pgdb.New(s.conn).DeleteDocumentByPublicID(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	if n == 0 {
		return store.ErrDocumentNotFound
	}
	return nil
}

func resultParams(result *common.DocumentResult, failure error) (pgdb.UpdateDocumentResultParams, error) {
	errs, err := json.Marshal(store.ErrorRecords(result.Errors))
	if err != nil {
		return pgdb.UpdateDocumentResultParams{}, fmt.Errorf("failed to marshal errors: %w", err)
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []common.ClusterReferenceWarning{}
	}
	warns, err := json.Marshal(warnings)
	if err != nil {
		return pgdb.UpdateDocumentResultParams{}, fmt.Errorf("failed to marshal warnings: %w", err)
	}

	status := store.StatusCompleted
	var failureText string
	if failure != nil {
		status = store.StatusFailed
		failureText = failure.Error()
	}

	return pgdb.UpdateDocumentResultParams{
		Status:         string(status),
		DocumentID:     optionalText(result.DocumentID),
		Namespace:      optionalText(result.Namespace.String()),
		Sentences:      int32(result.Sentences),
		TriplesCount:   int32(result.TriplesCount),
		Clusters:       int32(result.Clusters),
		LinkedClusters: int32(result.LinkedClusters),
		Linked:         result.Linked,
		Errors:         errs,
		Warnings:       warns,
		Failure:        optionalText(failureText),
	}, nil
}

func storedDocument(row pgdb.Document) (*store.StoredDocument, error) {
	doc := &store.StoredDocument{
		Key:            row.PublicID,
		Title:          row.Title,
		Status:         store.DocumentStatus(row.Status),
		DocumentID:     deref(row.DocumentID),
		Namespace:      deref(row.Namespace),
		Sentences:      int(row.Sentences),
		TriplesCount:   int(row.TriplesCount),
		Clusters:       int(row.Clusters),
		LinkedClusters: int(row.LinkedClusters),
		Linked:         row.Linked,
		Errors:         []common.ErrorRecord{},
		Warnings:       []common.ClusterReferenceWarning{},
		Failure:        deref(row.Failure),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if len(row.Errors) > 0 {
		if err := json.Unmarshal(row.Errors, &doc.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode stored errors: %w", err)
		}
	}
	if len(row.Warnings) > 0 {
		if err := json.Unmarshal(row.Warnings, &doc.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode stored warnings: %w", err)
		}
	}
	return doc, nil
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	s = util.SanitizePostgresText(s)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
