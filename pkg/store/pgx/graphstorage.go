package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	CopyFrom(ctx context.Context, tableName pgxv5.Identifier, columnNames []string, rowSrc pgxv5.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface using PostgreSQL.
// Documents live in one row each; their statements are bulk loaded with COPY.
type GraphDBStorage struct {
	conn pgxIConn
	// statementChunk bounds the rows sent per COPY.
	statementChunk int
}

type GraphDBStorageOption func(*GraphDBStorage)

func WithStatementChunk(n int) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		if n > 0 {
			s.statementChunk = n
		}
	}
}

// NewGraphDBStorageWithConnection creates a new GraphDBStorage using an
// existing pool, connection or transaction.
func NewGraphDBStorageWithConnection(conn pgxIConn, opts ...GraphDBStorageOption) *GraphDBStorage {
	s := &GraphDBStorage{
		conn:           conn,
		statementChunk: 5000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}
