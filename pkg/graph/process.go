package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/amr"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/convert"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/namespace"
)

// ProcessDocument runs the whole pipeline for one document.
//
// The returned result is always populated as far as the run got. The graph is
// nil when assembly failed. The error is non-nil for the hard failures only:
// a missing namespace (the graph is assembled but not linked), too few merged
// sentences or a failed coreference call. Per-sentence conversion, parse and
// decode failures are reported in result.Errors.
func (c *GraphClient) ProcessDocument(ctx context.Context, doc common.Document) (*common.DocumentResult, *DocumentGraph, error) {
	start := time.Now()
	result := &common.DocumentResult{
		Sentences: len(doc.Sentences),
		Errors:    make([]common.SentenceError, 0),
		Warnings:  make([]common.ClusterReferenceWarning, 0),
	}

	var firstMetadata string
	if len(doc.Sentences) > 0 {
		firstMetadata = doc.Sentences[0].AMRWithMetadata
	}
	ns, nsErr := namespace.Resolve(firstMetadata)
	if nsErr == nil {
		result.Namespace = ns
		result.DocumentID = ns.String()
	} else {
		result.DocumentID = namespace.FromTitle(doc.Title)
		logger.Warn("[Process] No article namespace, the graph will not be linked", "document", result.DocumentID)
	}

	conversions, err := convert.ConvertAll(ctx, c.converter, doc.Sentences, c.convertOptions())
	if err != nil {
		return result, nil, fmt.Errorf("conversion aborted: %w", err)
	}

	dg, sentenceErrs, err := Assemble(conversions)
	result.Errors = append(result.Errors, sentenceErrs...)
	if err != nil {
		logger.Error("[Process] Failed to assemble document graph", "document", result.DocumentID, "err", err)
		return result, nil, errors.Join(err, nsErr)
	}
	result.TriplesCount = dg.Len()

	if nsErr != nil {
		return result, dg, nsErr
	}

	decoded := decodeSentences(doc.Sentences)
	for _, derr := range decoded.errs {
		logger.Warn("[Process] Skipping undecodable sentence", "document", result.DocumentID, "sentence", derr.SentenceIndex, "err", derr.Cause)
		result.Errors = append(result.Errors, derr)
	}
	records := decoded.records

	clusters, err := c.resolver.Coreference(ctx, decoded.literal)
	if err != nil {
		return result, dg, fmt.Errorf("coreference failed: %w", err)
	}
	clusters = decoded.remap(clusters)
	result.Clusters = len(clusters)
	describeClusters(clusters, records)

	warnings, err := Link(dg, clusters, ns)
	if err != nil {
		return result, dg, err
	}
	result.Warnings = append(result.Warnings, warnings...)
	for _, cl := range clusters {
		if cl.Linkable() {
			result.LinkedClusters++
		}
	}
	result.TriplesCount = dg.Len()
	result.Linked = true

	logger.Info(
		"[Process] Document linked",
		"document", result.DocumentID,
		"statements", result.TriplesCount,
		"clusters", result.LinkedClusters,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"duration", time.Since(start),
	)

	return result, dg, nil
}

// decodedSentences holds the sentences that decoded. literal is dense and
// goes to the coreference model; indices maps its positions back to sentence
// indices. records is indexed by sentence and nil where decoding failed.
type decodedSentences struct {
	literal []*amr.Graph
	indices []int
	records []*common.GraphRecord
	errs    []*common.DecodeError
}

// decodeSentences decodes every sentence twice: literally for the
// coreference model, which depends on the surface form, and normalized for
// concept lookup. A sentence that fails either decode is left out.
func decodeSentences(sentences []common.SentenceGraph) decodedSentences {
	out := decodedSentences{
		literal: make([]*amr.Graph, 0, len(sentences)),
		indices: make([]int, 0, len(sentences)),
		records: make([]*common.GraphRecord, len(sentences)),
	}

	for i, s := range sentences {
		lg, err := amr.Decode(s.AMRWithMetadata, amr.Literal)
		if err != nil {
			out.errs = append(out.errs, &common.DecodeError{SentenceIndex: i, Cause: err})
			continue
		}
		ng, err := amr.Decode(s.AMRWithMetadata, amr.Normalized)
		if err != nil {
			out.errs = append(out.errs, &common.DecodeError{SentenceIndex: i, Cause: err})
			continue
		}
		rec, err := ng.Record(i)
		if err != nil {
			out.errs = append(out.errs, &common.DecodeError{SentenceIndex: i, Cause: err})
			continue
		}

		out.literal = append(out.literal, lg)
		out.indices = append(out.indices, i)
		out.records[i] = rec
	}

	return out
}

// remap rewrites mention indices from positions in literal to sentence
// indices. Positions outside literal are left as they are so the linker
// reports them.
func (d decodedSentences) remap(clusters map[string]common.CoreferenceCluster) map[string]common.CoreferenceCluster {
	out := make(map[string]common.CoreferenceCluster, len(clusters))
	for key, cl := range clusters {
		mentions := make([]common.Mention, len(cl.Mentions))
		for i, m := range cl.Mentions {
			if m.SentenceIndex >= 0 && m.SentenceIndex < len(d.indices) {
				m.SentenceIndex = d.indices[m.SentenceIndex]
			}
			mentions[i] = m
		}
		cl.Mentions = mentions
		out[key] = cl
	}
	return out
}

func describeClusters(clusters map[string]common.CoreferenceCluster, records []*common.GraphRecord) {
	for key, cl := range clusters {
		for _, m := range cl.Mentions {
			if m.SentenceIndex < 0 || m.SentenceIndex >= len(records) {
				logger.Debug("[Process] Mention outside of document", "cluster", key, "mention", m.String())
				continue
			}
			rec := records[m.SentenceIndex]
			if rec == nil {
				logger.Debug("[Process] Mention in undecoded sentence", "cluster", key, "mention", m.String())
				continue
			}
			concept, ok := rec.Concept(m.Variable)
			if !ok {
				logger.Debug("[Process] Mention variable not found", "cluster", key, "mention", m.String())
				continue
			}
			logger.Debug("[Process] Mention", "cluster", key, "mention", m.String(), "concept", concept)
		}
	}
}
