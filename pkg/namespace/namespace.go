// Package namespace derives the per-document identifier namespace from AMR
// sentence metadata and builds the node IRIs that depend on it.
//
// The identifier grammar is
//
//	# ::id <namespace>.<rest>
//
// where <namespace> is everything between the id marker and the first '.'.
// The sentence ordinal is read from <rest> when it has the form `sent<N>` or
// `<N>`; it is 1-based.
package namespace

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
)

const (
	// AMRDataBase is the base of every mention node IRI.
	AMRDataBase = "http://amr.isi.edu/amr_data/"
	// ClusterBase is the base of every cluster node IRI.
	ClusterBase = "http://example.org/cluster/"
)

var idPattern = regexp.MustCompile(`#\s*::id\s+([^.\s]+)\.(\S*)`)

// ID is a parsed `::id` field.
type ID struct {
	Namespace common.ArticleNamespace
	// Sentence is the 1-based ordinal, 0 when <rest> carries none.
	Sentence int
	Raw      string
}

// Resolve returns the namespace of the first `::id` field found in the
// metadata text. It fails with common.ErrNamespaceNotFound when there is none.
func Resolve(metadata string) (common.ArticleNamespace, error) {
	id, err := ParseID(metadata)
	if err != nil {
		return "", err
	}
	return id.Namespace, nil
}

// ParseID extracts the first `::id` field of the metadata text.
func ParseID(metadata string) (ID, error) {
	m := idPattern.FindStringSubmatch(metadata)
	if m == nil {
		return ID{}, common.ErrNamespaceNotFound
	}

	id := ID{
		Namespace: common.ArticleNamespace(m[1]),
		Raw:       m[1] + "." + m[2],
	}

	rest := m[2]
	if i := strings.IndexAny(rest, "."); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimPrefix(rest, "sent")
	if n, err := strconv.Atoi(rest); err == nil && n > 0 {
		id.Sentence = n
	}

	return id, nil
}

// FromTitle derives a document id from an article title by dropping the
// wiki-style '=' markers and all spaces. It is used when no `::id` field is
// available.
func FromTitle(title string) string {
	title = strings.ReplaceAll(title, "=", "")
	return strings.ReplaceAll(title, " ", "")
}

// MentionIRI returns the IRI of variable v in the sentence with the given
// 0-based index. External sentence identifiers are 1-based.
func MentionIRI(ns common.ArticleNamespace, sentenceIndex int, v string) string {
	return fmt.Sprintf("%s%s.sent%d#%s", AMRDataBase, ns, sentenceIndex+1, v)
}

// ClusterIRI returns the IRI of the cluster node for a relation key. It only
// depends on the key, so re-linking a document reuses the same node.
func ClusterIRI(relationKey string) string {
	return ClusterBase + url.PathEscape(relationKey)
}
