package graph

import (
	"errors"
	"time"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/convert"
	"github.com/OFFIS-RIT/amrlink/pkg/coref"
)

// GraphClient runs the document pipeline: it converts the sentences of a
// document, assembles the fragments into one graph and overlays the
// coreference clusters.
//
// A GraphClient holds no per-document state and can process several
// documents concurrently. It should be created using NewGraphClient.
type GraphClient struct {
	converter         convert.Converter
	resolver          coref.Resolver
	format            common.Format
	parallelSentences int
	sentenceTimeout   time.Duration
	maxRetries        int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// Converter and Resolver are required. Format defaults to n3.
// ParallelSentences bounds concurrent converter processes per document.
// SentenceTimeout applies to every converter attempt.
// MaxRetries is the number of extra attempts for a failed conversion.
type NewGraphClientParams struct {
	Converter         convert.Converter
	Resolver          coref.Resolver
	Format            common.Format
	ParallelSentences int
	SentenceTimeout   time.Duration
	MaxRetries        int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	conv, _ := convert.NewExecConverter([]string{"python", "amr_to_rdf.py"})
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		Converter:         conv,
//		Resolver:          coref.StaticResolver{},
//		ParallelSentences: 4,
//		SentenceTimeout:   30 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Converter == nil {
		return nil, errors.New("graph client: converter is required")
	}
	if params.Resolver == nil {
		return nil, errors.New("graph client: coreference resolver is required")
	}

	format := params.Format
	if format == "" {
		format = common.FormatN3
	}
	if _, err := common.ParseFormat(string(format)); err != nil {
		return nil, err
	}

	parallel := params.ParallelSentences
	if parallel <= 0 {
		parallel = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &GraphClient{
		converter:         params.Converter,
		resolver:          params.Resolver,
		format:            format,
		parallelSentences: parallel,
		sentenceTimeout:   params.SentenceTimeout,
		maxRetries:        maxRetries,
	}, nil
}

func (c *GraphClient) convertOptions() convert.Options {
	return convert.Options{
		Format:     c.format,
		Parallel:   c.parallelSentences,
		Timeout:    c.sentenceTimeout,
		MaxRetries: c.maxRetries,
	}
}
