// Package pipeline wires the document graph client from the environment.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/convert"
	"github.com/OFFIS-RIT/amrlink/pkg/coref"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
)

// Config holds the pipeline settings.
type Config struct {
	ConverterCmd      []string
	Format            string
	SentenceTimeout   time.Duration
	ParallelSentences int
	MaxRetries        int
	CorefCmd          []string
	CorefTimeout      time.Duration
}

// ConfigFromEnv reads AMR_CONVERTER_CMD, AMR_CONVERTER_FORMAT,
// AMR_CONVERTER_TIMEOUT, AMR_PARALLEL_SENTENCES, AMR_CONVERTER_RETRIES,
// COREF_CMD and COREF_TIMEOUT.
func ConfigFromEnv() Config {
	return Config{
		ConverterCmd:      util.GetEnvList("AMR_CONVERTER_CMD"),
		Format:            util.GetEnvString("AMR_CONVERTER_FORMAT", "n3"),
		SentenceTimeout:   util.GetEnvDuration("AMR_CONVERTER_TIMEOUT", 60*time.Second),
		ParallelSentences: int(util.GetEnvNumeric("AMR_PARALLEL_SENTENCES", 4)),
		MaxRetries:        int(util.GetEnvNumeric("AMR_CONVERTER_RETRIES", 2)),
		CorefCmd:          util.GetEnvList("COREF_CMD"),
		CorefTimeout:      util.GetEnvDuration("COREF_TIMEOUT", 10*time.Minute),
	}
}

// NewGraphClient builds a client that shells out to the configured
// converter and coreference commands. resolver overrides COREF_CMD when set.
func NewGraphClient(cfg Config, resolver coref.Resolver) (*graph.GraphClient, error) {
	if len(cfg.ConverterCmd) == 0 {
		return nil, errors.New("no converter command configured")
	}
	conv, err := convert.NewExecConverter(cfg.ConverterCmd)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	if resolver == nil {
		if len(cfg.CorefCmd) == 0 {
			return nil, errors.New("no coreference command configured")
		}
		r, err := coref.NewExecResolver(cfg.CorefCmd, cfg.CorefTimeout)
		if err != nil {
			return nil, fmt.Errorf("coreference: %w", err)
		}
		resolver = r
	}

	format, err := common.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	return graph.NewGraphClient(graph.NewGraphClientParams{
		Converter:         conv,
		Resolver:          resolver,
		Format:            format,
		ParallelSentences: cfg.ParallelSentences,
		SentenceTimeout:   cfg.SentenceTimeout,
		MaxRetries:        cfg.MaxRetries,
	})
}
