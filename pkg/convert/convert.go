// Package convert wraps the external AMR to RDF converter. Every sentence is
// converted by its own process invocation; results are collected in sentence
// order no matter in which order the conversions finish.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Converter turns the metadata-annotated AMR of one sentence into an RDF
// fragment. Implementations must be safe for concurrent use.
type Converter interface {
	Convert(ctx context.Context, sentenceIndex int, amr string, format common.Format) (common.RdfFragment, error)
}

// ConverterFunc adapts a plain function to the Converter interface.
type ConverterFunc func(ctx context.Context, sentenceIndex int, amr string, format common.Format) (common.RdfFragment, error)

func (f ConverterFunc) Convert(ctx context.Context, sentenceIndex int, amr string, format common.Format) (common.RdfFragment, error) {
	return f(ctx, sentenceIndex, amr, format)
}

// ExecConverter spawns the converter command once per sentence, feeding the
// AMR on stdin and reading the fragment from stdout.
type ExecConverter struct {
	Command string
	Args    []string
	// WaitDelay bounds how long a killed process may keep its pipes open.
	WaitDelay time.Duration
}

// NewExecConverter builds an ExecConverter from a command line such as
// "python amr-ld/amr_to_rdf.py".
func NewExecConverter(cmdline []string) (*ExecConverter, error) {
	if len(cmdline) == 0 || cmdline[0] == "" {
		return nil, errors.New("converter command is empty")
	}
	return &ExecConverter{
		Command:   cmdline[0],
		Args:      append([]string(nil), cmdline[1:]...),
		WaitDelay: 2 * time.Second,
	}, nil
}

func (c *ExecConverter) Convert(ctx context.Context, sentenceIndex int, amr string, format common.Format) (common.RdfFragment, error) {
	args := append(append([]string(nil), c.Args...), "-i", "-", "-o", "-", "-f", string(format))
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.WaitDelay = c.WaitDelay
	cmd.Stdin = strings.NewReader(amr)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = fmt.Errorf("%s: %w", c.Command, ctxErr)
		} else if diag := strings.TrimSpace(stderr.String()); diag != "" {
			cause = fmt.Errorf("%s: %w: %s", c.Command, err, diag)
		} else {
			cause = fmt.Errorf("%s: %w", c.Command, err)
		}
		return common.RdfFragment{}, &common.ConversionError{SentenceIndex: sentenceIndex, Cause: cause}
	}

	return common.RdfFragment{
		SentenceIndex: sentenceIndex,
		Format:        format,
		Text:          stdout.String(),
	}, nil
}

// Options configure ConvertAll.
type Options struct {
	Format common.Format
	// Parallel bounds the number of concurrent conversions. Values <= 0 run
	// every sentence at once.
	Parallel int
	// Timeout applies to each attempt of each sentence. Zero disables it.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a failed conversion.
	// Timeouts are never retried.
	MaxRetries int
}

// ConvertAll converts every sentence and returns one result per sentence,
// indexed by sentence position. It only returns an error when ctx is done
// before all conversions were attempted.
func ConvertAll(ctx context.Context, conv Converter, sentences []common.SentenceGraph, opts Options) ([]common.ConversionResult, error) {
	if opts.Format == "" {
		opts.Format = common.FormatN3
	}

	results := make([]common.ConversionResult, len(sentences))

	var g errgroup.Group
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, s := range sentences {
		g.Go(func() error {
			results[i] = convertSentence(ctx, conv, i, s, opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func convertSentence(ctx context.Context, conv Converter, idx int, s common.SentenceGraph, opts Options) common.ConversionResult {
	attempt := 0
	frag, err := util.RetryWithContext(ctx, opts.MaxRetries+1, func(ctx context.Context) (common.RdfFragment, error) {
		attempt++
		if attempt > 1 {
			logger.Debug("[Convert] Retrying sentence", "sentence", idx, "attempt", attempt)
		}
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		return conv.Convert(ctx, idx, s.AMRWithMetadata, opts.Format)
	})
	if err != nil {
		var convErr *common.ConversionError
		if !errors.As(err, &convErr) {
			convErr = &common.ConversionError{SentenceIndex: idx, Cause: err}
		}
		convErr.SentenceIndex = idx
		logger.Warn("[Convert] Sentence conversion failed", "sentence", idx, "err", convErr.Cause)
		return common.ConversionResult{Err: convErr}
	}

	frag.SentenceIndex = idx
	if frag.Format == "" {
		frag.Format = opts.Format
	}
	return common.ConversionResult{Fragment: &frag}
}
