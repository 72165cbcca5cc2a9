package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, public_id, title, status, document_id, namespace, sentences, triples_count,
       clusters, linked_clusters, linked, errors, warnings, failure, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var i Document
	err := row.Scan(
		&i.ID,
		&i.PublicID,
		&i.Title,
		&i.Status,
		&i.DocumentID,
		&i.Namespace,
		&i.Sentences,
		&i.TriplesCount,
		&i.Clusters,
		&i.LinkedClusters,
		&i.Linked,
		&i.Errors,
		&i.Warnings,
		&i.Failure,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createDocument = `
INSERT INTO documents (public_id, title, status)
VALUES ($1, $2, $3)
ON CONFLICT (public_id) DO UPDATE
SET title = EXCLUDED.title,
    updated_at = now()
RETURNING ` + documentColumns

type CreateDocumentParams struct {
	PublicID string
	Title    string
	Status   string
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	return scanDocument(q.db.QueryRow(ctx, createDocument, arg.PublicID, arg.Title, arg.Status))
}

const getDocumentByPublicID = `
SELECT ` + documentColumns + `
FROM documents
WHERE public_id = $1`

func (q *Queries) GetDocumentByPublicID(ctx context.Context, publicID string) (Document, error) {
	return scanDocument(q.db.QueryRow(ctx, getDocumentByPublicID, publicID))
}

const lockDocumentByPublicID = `
SELECT ` + documentColumns + `
FROM documents
WHERE public_id = $1
FOR UPDATE`

func (q *Queries) LockDocumentByPublicID(ctx context.Context, publicID string) (Document, error) {
	return scanDocument(q.db.QueryRow(ctx, lockDocumentByPublicID, publicID))
}

const updateDocumentStatus = `
UPDATE documents
SET status = $2,
    failure = $3,
    updated_at = now()
WHERE public_id = $1`

type UpdateDocumentStatusParams struct {
	PublicID string
	Status   string
	Failure  *string
}

func (q *Queries) UpdateDocumentStatus(ctx context.Context, arg UpdateDocumentStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateDocumentStatus, arg.PublicID, arg.Status, arg.Failure)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateDocumentResult = `
UPDATE documents
SET status = $2,
    document_id = $3,
    namespace = $4,
    sentences = $5,
    triples_count = $6,
    clusters = $7,
    linked_clusters = $8,
    linked = $9,
    errors = $10,
    warnings = $11,
    failure = $12,
    updated_at = now()
WHERE id = $1`

type UpdateDocumentResultParams struct {
	ID             int64
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
}

func (q *Queries) UpdateDocumentResult(ctx context.Context, arg UpdateDocumentResultParams) error {
	_, err := q.db.Exec(ctx, updateDocumentResult,
		arg.ID,
		arg.Status,
		arg.DocumentID,
		arg.Namespace,
		arg.Sentences,
		arg.TriplesCount,
		arg.Clusters,
		arg.LinkedClusters,
		arg.Linked,
		arg.Errors,
		arg.Warnings,
		arg.Failure,
	)
	return err
}

const deleteDocumentByPublicID = `
DELETE FROM documents
WHERE public_id = $1`

func (q *Queries) DeleteDocumentByPublicID(ctx context.Context, publicID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentByPublicID, publicID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteDocumentStatements = `
DELETE FROM document_statements
WHERE document_id = $1`

func (q *Queries) DeleteDocumentStatements(ctx context.Context, documentID int64) error {
	_, err := q.db.Exec(ctx, deleteDocumentStatements, documentID)
	return err
}

// InsertDocumentStatements bulk loads statements with the COPY protocol.
func (q *Queries) InsertDocumentStatements(ctx context.Context, rows []DocumentStatement) (int64, error) {
	return q.db.CopyFrom(
		ctx,
		pgx.Identifier{"document_statements"},
		[]string{"document_id", "position", "subject", "predicate", "object", "source"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.DocumentID, r.Position, r.Subject, r.Predicate, r.Object, r.Source}, nil
		}),
	)
}

const listDocumentStatements = `
SELECT s.document_id, s.position, s.subject, s.predicate, s.object, s.source
FROM document_statements s
JOIN documents d ON d.id = s.document_id
WHERE d.public_id = $1
ORDER BY s.position`

func (q *Queries) ListDocumentStatements(ctx context.Context, publicID string) ([]DocumentStatement, error) {
	rows, err := q.db.Query(ctx, listDocumentStatements, publicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DocumentStatement
	for rows.Next() {
		var i DocumentStatement
		if err := rows.Scan(&i.DocumentID, &i.Position, &i.Subject, &i.Predicate, &i.Object, &i.Source); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
