package graph

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/namespace"

	"github.com/knakk/rdf"
)

const amrTerms = "http://amr.isi.edu/rdf/amr-terms#"

// sentenceTurtle renders the kind of fragment the converter produces: one
// typed node per variable, the first one named.
func sentenceTurtle(ns string, idx int, vars ...string) string {
	var b strings.Builder
	for i, v := range vars {
		node := namespace.MentionIRI(common.ArticleNamespace(ns), idx, v)
		fmt.Fprintf(&b, "<%s> <%s> <%sperson> .\n", node, RDFType, amrTerms)
		if i == 0 {
			fmt.Fprintf(&b, "<%s> <%sname> \"s%d\" .\n", node, amrTerms, idx)
		} else {
			prev := namespace.MentionIRI(common.ArticleNamespace(ns), idx, vars[i-1])
			fmt.Fprintf(&b, "<%s> <%sARG0> <%s> .\n", prev, amrTerms, node)
		}
	}
	return b.String()
}

func okResult(idx int, text string) common.ConversionResult {
	return common.ConversionResult{Fragment: &common.RdfFragment{
		SentenceIndex: idx,
		Format:        common.FormatTurtle,
		Text:          text,
	}}
}

func failedResult(idx int, cause string) common.ConversionResult {
	return common.ConversionResult{Err: &common.ConversionError{
		SentenceIndex: idx,
		Cause:         fmt.Errorf("%s", cause),
	}}
}

func countPredicate(g *DocumentGraph, predicate string) int {
	n := 0
	for _, t := range g.Triples() {
		if iri, ok := t.Pred.(rdf.IRI); ok && iri.String() == predicate {
			n++
		}
	}
	return n
}

func countClusterNodes(g *DocumentGraph) int {
	n := 0
	for _, t := range g.Triples() {
		if t.Pred.String() == RDFType && t.Obj.String() == ClusterClass {
			n++
		}
	}
	return n
}

func hasLinePrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
