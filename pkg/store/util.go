package store

import (
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"

	"github.com/knakk/rdf"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// StatementsFromGraph flattens a document graph for storage, keeping
// insertion order and provenance.
func StatementsFromGraph(doc *graph.DocumentGraph) []StoredStatement {
	if doc == nil {
		return nil
	}
	stmts := doc.Statements()
	out := make([]StoredStatement, len(stmts))
	for i, s := range stmts {
		out[i] = StoredStatement{
			Position:  i,
			Subject:   s.Triple.Subj.Serialize(rdf.NTriples),
			Predicate: s.Triple.Pred.Serialize(rdf.NTriples),
			Object:    s.Triple.Obj.Serialize(rdf.NTriples),
			Source:    s.Source,
		}
	}
	return out
}

// GraphFromStatements rebuilds a document graph from stored statements.
func GraphFromStatements(stmts []StoredStatement) (*graph.DocumentGraph, error) {
	doc := graph.NewDocumentGraph()
	for _, s := range stmts {
		if err := doc.AddSerialized(s.Subject, s.Predicate, s.Object, s.Source); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ErrorRecords flattens sentence errors for storage.
func ErrorRecords(errs []common.SentenceError) []common.ErrorRecord {
	out := make([]common.ErrorRecord, 0, len(errs))
	for _, e := range errs {
		out = append(out, common.NewErrorRecord(e))
	}
	return out
}
