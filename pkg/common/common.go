package common

import (
	"fmt"
	"sort"
	"strings"
)

// Document is one article made of per-sentence AMR graphs. Sentences keep the
// order in which they appear in the article; the coreference collaborator
// relies on that order because the sentence indices it returns are positional.
type Document struct {
	Title        string          `json:"title"`
	Paragraph    string          `json:"paragraph,omitempty"`
	ParagraphAMR string          `json:"paragraph_amr,omitempty"`
	Sentences    []SentenceGraph `json:"sentences" validate:"required,min=1,dive"`
}

// SentenceGraph is the caller-owned input for one sentence: the plain text,
// the bare AMR and the AMR prefixed with its metadata comments
// (`# ::id a1.sent1 ::snt ...`).
type SentenceGraph struct {
	Text            string `json:"text"`
	AMR             string `json:"amr"`
	AMRWithMetadata string `json:"amr_metadata" validate:"required"`
}

// ArticleNamespace is the per-document token used to build globally unique
// node IRIs. It is derived once per run and never changes afterwards.
type ArticleNamespace string

func (n ArticleNamespace) String() string {
	return string(n)
}

// Triple is a single (subject, predicate, object) statement of a sentence
// graph. Subject and Object are either variables of the sentence or literals.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// GraphRecord is the canonical, read-only view of one decoded sentence graph.
//
// The set of variables is exactly the set of sources of the instances. A
// GraphRecord is built once through NewGraphRecord and never mutated.
type GraphRecord struct {
	sentenceIndex int
	top           string
	instances     map[string]string
	triples       []Triple
}

// NewGraphRecord builds a GraphRecord from the instances and relation triples
// of a decoded sentence. Every subject must be an instance variable; an object
// that is not a variable is a literal.
func NewGraphRecord(sentenceIndex int, top string, instances map[string]string, triples []Triple) (*GraphRecord, error) {
	inst := make(map[string]string, len(instances))
	for v, concept := range instances {
		inst[v] = concept
	}

	if top != "" {
		if _, ok := inst[top]; !ok {
			return nil, fmt.Errorf("sentence %d: top %q is not an instance variable", sentenceIndex, top)
		}
	}

	for _, t := range triples {
		if _, ok := inst[t.Subject]; !ok {
			return nil, fmt.Errorf("sentence %d: subject %q of %s is not an instance variable", sentenceIndex, t.Subject, t.Predicate)
		}
	}

	return &GraphRecord{
		sentenceIndex: sentenceIndex,
		top:           top,
		instances:     inst,
		triples:       append([]Triple(nil), triples...),
	}, nil
}

func (r *GraphRecord) SentenceIndex() int { return r.sentenceIndex }

func (r *GraphRecord) Top() string { return r.top }

// Variables returns the sentence variables in sorted order.
func (r *GraphRecord) Variables() []string {
	vars := make([]string, 0, len(r.instances))
	for v := range r.instances {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

func (r *GraphRecord) HasVariable(v string) bool {
	_, ok := r.instances[v]
	return ok
}

// Concept returns the concept label bound to variable v.
func (r *GraphRecord) Concept(v string) (string, bool) {
	c, ok := r.instances[v]
	return c, ok
}

// Triples returns a copy of the relation triples in their original order.
func (r *GraphRecord) Triples() []Triple {
	return append([]Triple(nil), r.triples...)
}

// IsLiteral reports whether a triple endpoint is a constant of this record
// rather than a reference to one of its variables.
func (r *GraphRecord) IsLiteral(s string) bool {
	_, ok := r.instances[s]
	return !ok
}

// Format selects the serialization produced by the AMR to RDF converter.
type Format string

const (
	FormatN3       Format = "n3"
	FormatTurtle   Format = "ttl"
	FormatNTriples Format = "nt"
)

// ParseFormat validates a format option. An empty string selects n3.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatN3:
		return FormatN3, nil
	case FormatTurtle, "turtle":
		return FormatTurtle, nil
	case FormatNTriples, "ntriples":
		return FormatNTriples, nil
	default:
		return "", fmt.Errorf("unsupported rdf format %q", s)
	}
}

// MediaType is the content type of the serialization.
func (f Format) MediaType() string {
	switch f {
	case FormatNTriples:
		return "application/n-triples"
	case FormatTurtle:
		return "text/turtle"
	default:
		return "text/n3"
	}
}

// RdfFragment is the serialized triple text returned by the converter for a
// single sentence.
type RdfFragment struct {
	SentenceIndex int    `json:"sentence_index"`
	Format        Format `json:"format"`
	Text          string `json:"text"`
}

// ConversionResult holds either the fragment of a sentence or the reason it
// could not be produced. Exactly one of Fragment and Err is set.
type ConversionResult struct {
	Fragment *RdfFragment
	Err      *ConversionError
}

// SentenceIndex returns the index of the sentence the result belongs to.
func (r ConversionResult) SentenceIndex() int {
	if r.Fragment != nil {
		return r.Fragment.SentenceIndex
	}
	if r.Err != nil {
		return r.Err.SentenceIndex
	}
	return -1
}

// Mention is a single variable of a single sentence taking part in a
// coreference cluster. SentenceIndex is 0-based.
type Mention struct {
	SentenceIndex int    `json:"sentence_index"`
	Variable      string `json:"variable"`
}

func (m Mention) String() string {
	return fmt.Sprintf("%d.%s", m.SentenceIndex, m.Variable)
}

// CoreferenceCluster groups the mentions judged to denote the same entity, in
// the order returned by the coreference collaborator.
type CoreferenceCluster struct {
	RelationKey string    `json:"relation_key"`
	Mentions    []Mention `json:"mentions"`
}

// Linkable reports whether the cluster has anything to be same-as with.
func (c CoreferenceCluster) Linkable() bool {
	return len(c.Mentions) >= 2
}

// DocumentResult is the per-document outcome of a processing run. It is
// always populated on a best effort basis, even when the run failed.
type DocumentResult struct {
	DocumentID     string                    `json:"document_id"`
	Namespace      ArticleNamespace          `json:"namespace,omitempty"`
	Sentences      int                       `json:"sentences"`
	TriplesCount   int                       `json:"triples_count"`
	Clusters       int                       `json:"clusters"`
	LinkedClusters int                       `json:"linked_clusters"`
	Errors         []SentenceError           `json:"errors"`
	Warnings       []ClusterReferenceWarning `json:"warnings,omitempty"`
	Linked         bool                      `json:"linked"`
}
