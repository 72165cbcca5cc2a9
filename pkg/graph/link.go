package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/namespace"

	"github.com/knakk/rdf"
)

type linkVocabulary struct {
	rdfType   rdf.IRI
	rdfsLabel rdf.IRI
	cluster   rdf.IRI
	sameAs    rdf.IRI
}

func newLinkVocabulary() (linkVocabulary, error) {
	var v linkVocabulary
	var err error
	if v.rdfType, err = rdf.NewIRI(RDFType); err != nil {
		return v, err
	}
	if v.rdfsLabel, err = rdf.NewIRI(RDFSLabel); err != nil {
		return v, err
	}
	if v.cluster, err = rdf.NewIRI(ClusterClass); err != nil {
		return v, err
	}
	if v.sameAs, err = rdf.NewIRI(ClusterSameAs); err != nil {
		return v, err
	}
	return v, nil
}

// Link overlays coreference clusters onto the document graph. Every cluster
// with at least two mentions gets one cluster node, typed cluster:Cluster and
// labelled "Cluster <key>", and one `mention cluster:sameAs cluster` edge per
// mention. Clusters with fewer mentions are skipped.
//
// Link only adds statements and is idempotent: the cluster IRI depends on
// the relation key alone and re-adding a statement is a no-op. Mentions whose
// node does not occur in any sentence fragment are still linked and reported
// as warnings. The only failure is a missing namespace.
func Link(doc *DocumentGraph, clusters map[string]common.CoreferenceCluster, ns common.ArticleNamespace) ([]common.ClusterReferenceWarning, error) {
	if doc == nil {
		return nil, errors.New("link: document graph is nil")
	}
	if strings.TrimSpace(string(ns)) == "" {
		return nil, fmt.Errorf("link: %w", common.ErrNamespaceNotFound)
	}

	vocab, err := newLinkVocabulary()
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	keys := make([]string, 0, len(clusters))
	for key := range clusters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	warnings := make([]common.ClusterReferenceWarning, 0)
	for _, key := range keys {
		cluster := clusters[key]
		if !cluster.Linkable() {
			logger.Debug("[Link] Skipping singleton cluster", "cluster", key, "mentions", len(cluster.Mentions))
			continue
		}

		node, err := rdf.NewIRI(namespace.ClusterIRI(key))
		if err != nil {
			logger.Warn("[Link] Skipping cluster with invalid key", "cluster", key, "err", err)
			continue
		}
		label, err := rdf.NewLiteral("Cluster " + key)
		if err != nil {
			logger.Warn("[Link] Skipping cluster with invalid label", "cluster", key, "err", err)
			continue
		}

		doc.Add(rdf.Triple{Subj: node, Pred: vocab.rdfType, Obj: vocab.cluster}, LinkSource)
		doc.Add(rdf.Triple{Subj: node, Pred: vocab.rdfsLabel, Obj: label}, LinkSource)

		for _, m := range cluster.Mentions {
			w, ok := linkMention(doc, vocab, node, key, m, ns)
			if !ok {
				warnings = append(warnings, w)
				logger.Warn("[Link] Cluster reference", "cluster", key, "mention", m.String(), "reason", w.Reason)
			}
		}
	}

	return warnings, nil
}

func linkMention(
	doc *DocumentGraph,
	vocab linkVocabulary,
	cluster rdf.IRI,
	key string,
	m common.Mention,
	ns common.ArticleNamespace,
) (common.ClusterReferenceWarning, bool) {
	iri := namespace.MentionIRI(ns, m.SentenceIndex, m.Variable)
	warning := common.ClusterReferenceWarning{RelationKey: key, Mention: m, IRI: iri}

	if m.SentenceIndex < 0 || m.Variable == "" {
		warning.Reason = "malformed mention"
		return warning, false
	}

	node, err := rdf.NewIRI(iri)
	if err != nil {
		warning.Reason = "invalid mention iri"
		return warning, false
	}

	found := doc.HasNode(iri)
	doc.Add(rdf.Triple{Subj: node, Pred: vocab.sameAs, Obj: cluster}, LinkSource)

	if !found {
		warning.Reason = "not present in document graph"
		return warning, false
	}
	return warning, true
}
