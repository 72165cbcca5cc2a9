package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"

	"github.com/knakk/rdf"
)

// LinkSource is the provenance of statements added by the coreference
// linker rather than by a sentence fragment.
const LinkSource = -1

// Statement is a triple of the document graph tagged with the index of the
// sentence it came from.
type Statement struct {
	Triple rdf.Triple
	Source int
}

type statementKey struct {
	triple string
	source int
}

// DocumentGraph accumulates the triples of one document. Statements keep
// insertion order and the same (subject, predicate, object, source) is never
// stored twice.
//
// A DocumentGraph has a single writer; it is not safe for concurrent use.
type DocumentGraph struct {
	statements []Statement
	index      map[statementKey]struct{}
	// nodes holds the IRIs and blank nodes used by sentence statements.
	nodes map[string]struct{}
}

// NewDocumentGraph returns an empty document graph.
func NewDocumentGraph() *DocumentGraph {
	return &DocumentGraph{
		statements: make([]Statement, 0),
		index:      make(map[statementKey]struct{}),
		nodes:      make(map[string]struct{}),
	}
}

// Add appends a statement unless an identical one from the same source is
// already present. It reports whether the graph changed.
func (g *DocumentGraph) Add(t rdf.Triple, source int) bool {
	key := statementKey{triple: t.Serialize(rdf.NTriples), source: source}
	if _, ok := g.index[key]; ok {
		return false
	}
	g.index[key] = struct{}{}
	g.statements = append(g.statements, Statement{Triple: t, Source: source})

	if source != LinkSource {
		g.nodes[t.Subj.Serialize(rdf.NTriples)] = struct{}{}
		if t.Obj.Type() != rdf.TermLiteral {
			g.nodes[t.Obj.Serialize(rdf.NTriples)] = struct{}{}
		}
	}
	return true
}

// AddSerialized adds a statement given as N-Triples terms, as stored by the
// persistence layer.
func (g *DocumentGraph) AddSerialized(subject, predicate, object string, source int) error {
	line := fmt.Sprintf("%s %s %s .\n", subject, predicate, object)
	t, err := rdf.NewTripleDecoder(strings.NewReader(line), rdf.NTriples).Decode()
	if err != nil {
		return fmt.Errorf("decode statement %q: %w", strings.TrimSpace(line), err)
	}
	g.Add(t, source)
	return nil
}

// Len returns the number of statements.
func (g *DocumentGraph) Len() int {
	return len(g.statements)
}

// Statements returns the statements in insertion order.
func (g *DocumentGraph) Statements() []Statement {
	return append([]Statement(nil), g.statements...)
}

// Triples returns the triples in insertion order.
func (g *DocumentGraph) Triples() []rdf.Triple {
	triples := make([]rdf.Triple, len(g.statements))
	for i, s := range g.statements {
		triples[i] = s.Triple
	}
	return triples
}

// TripleSet returns the sorted N-Triples serialization of every distinct
// triple, ignoring provenance. Two graphs with the same TripleSet hold the
// same statements.
func (g *DocumentGraph) TripleSet() []string {
	seen := make(map[string]struct{}, len(g.statements))
	set := make([]string, 0, len(g.statements))
	for _, s := range g.statements {
		line := strings.TrimSpace(s.Triple.Serialize(rdf.NTriples))
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		set = append(set, line)
	}
	sort.Strings(set)
	return set
}

// HasNode reports whether the IRI occurs as subject or object in a
// statement that came from a sentence fragment.
func (g *DocumentGraph) HasNode(iri string) bool {
	node, err := rdf.NewIRI(iri)
	if err != nil {
		return false
	}
	_, ok := g.nodes[node.Serialize(rdf.NTriples)]
	return ok
}

// Sources returns the distinct sentence indices contributing statements, in
// ascending order.
func (g *DocumentGraph) Sources() []int {
	seen := make(map[int]struct{})
	sources := make([]int, 0)
	for _, s := range g.statements {
		if s.Source == LinkSource {
			continue
		}
		if _, ok := seen[s.Source]; ok {
			continue
		}
		seen[s.Source] = struct{}{}
		sources = append(sources, s.Source)
	}
	sort.Ints(sources)
	return sources
}

// Encode writes the graph in the requested serialization.
func (g *DocumentGraph) Encode(w io.Writer, format common.Format) error {
	enc := rdf.NewTripleEncoder(w, rdfFormat(format))
	if err := enc.EncodeAll(g.Triples()); err != nil {
		return fmt.Errorf("encode document graph: %w", err)
	}
	return enc.Close()
}

func rdfFormat(format common.Format) rdf.Format {
	if format == common.FormatNTriples {
		return rdf.NTriples
	}
	return rdf.Turtle
}
