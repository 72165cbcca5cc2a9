package graph

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"

	"github.com/knakk/rdf"
)

// minFragments is the smallest number of merged sentences that makes a
// document graph meaningful.
const minFragments = 2

// Assemble merges the per-sentence conversion results into one document
// graph. Failed conversions and fragments that do not parse are collected
// as sentence errors and left out; they never abort the rest of the merge.
//
// Statements are ordered by ascending sentence index, then by their order in
// the fragment. With fewer than two merged sentences no graph is returned
// and the error wraps common.ErrInsufficientFragments.
func Assemble(results []common.ConversionResult) (*DocumentGraph, []common.SentenceError, error) {
	ordered := append([]common.ConversionResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SentenceIndex() < ordered[j].SentenceIndex()
	})

	doc := NewDocumentGraph()
	sentenceErrs := make([]common.SentenceError, 0)
	merged := make(map[int]struct{})

	for _, result := range ordered {
		if result.Err != nil {
			sentenceErrs = append(sentenceErrs, result.Err)
			continue
		}
		if result.Fragment == nil {
			sentenceErrs = append(sentenceErrs, &common.ConversionError{
				SentenceIndex: result.SentenceIndex(),
				Cause:         errors.New("no fragment"),
			})
			continue
		}

		frag := *result.Fragment
		triples, err := ParseFragment(frag)
		if err != nil {
			logger.Warn("[Assemble] Skipping malformed fragment", "sentence", frag.SentenceIndex, "err", err)
			sentenceErrs = append(sentenceErrs, &common.ParseError{SentenceIndex: frag.SentenceIndex, Cause: err})
			continue
		}

		for _, t := range triples {
			doc.Add(t, frag.SentenceIndex)
		}
		merged[frag.SentenceIndex] = struct{}{}
	}

	if len(merged) < minFragments {
		return nil, sentenceErrs, fmt.Errorf(
			"%w: %d of %d sentences merged",
			common.ErrInsufficientFragments,
			len(merged),
			len(results),
		)
	}

	logger.Debug("[Assemble] Document graph assembled", "sentences", len(merged), "statements", doc.Len(), "errors", len(sentenceErrs))

	return doc, sentenceErrs, nil
}

// ParseFragment decodes the serialized triples of one fragment. Blank nodes
// are renamed per sentence so that labels reused by different sentences do
// not collapse into one node. The fragment is parsed completely before
// anything is returned.
func ParseFragment(frag common.RdfFragment) ([]rdf.Triple, error) {
	if strings.TrimSpace(frag.Text) == "" {
		return nil, errors.New("fragment contains no triples")
	}

	dec := rdf.NewTripleDecoder(strings.NewReader(frag.Text), rdfFormat(frag.Format))
	triples := make([]rdf.Triple, 0)
	for {
		t, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		t, err = scopeBlanks(t, frag.SentenceIndex)
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}

	if len(triples) == 0 {
		return nil, errors.New("fragment contains no triples")
	}
	return triples, nil
}

func scopeBlanks(t rdf.Triple, sentenceIndex int) (rdf.Triple, error) {
	if b, ok := t.Subj.(rdf.Blank); ok {
		scoped, err := scopeBlank(b, sentenceIndex)
		if err != nil {
			return t, err
		}
		t.Subj = scoped
	}
	if b, ok := t.Obj.(rdf.Blank); ok {
		scoped, err := scopeBlank(b, sentenceIndex)
		if err != nil {
			return t, err
		}
		t.Obj = scoped
	}
	return t, nil
}

func scopeBlank(b rdf.Blank, sentenceIndex int) (rdf.Blank, error) {
	label := strings.TrimPrefix(b.String(), "_:")
	return rdf.NewBlank(fmt.Sprintf("s%d_%s", sentenceIndex, label))
}
