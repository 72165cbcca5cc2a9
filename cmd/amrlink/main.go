// Command amrlink builds the linked document graph of one document file and
// prints the run summary as JSON.
//
//	amrlink -doc article.json -converter "python amr_to_rdf.py" -coref "python coref.py" -out graph.ttl
//	amrlink -doc s3://bucket/documents/key/document.json -clusters clusters.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OFFIS-RIT/amrlink/internal/pipeline"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/coref"
	"github.com/OFFIS-RIT/amrlink/pkg/loader"
	ioloader "github.com/OFFIS-RIT/amrlink/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/amrlink/pkg/loader/s3"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/logger/console"
	"github.com/OFFIS-RIT/amrlink/pkg/store"
)

// summary is the printed outcome; sentence errors are flattened so the
// output can be read back.
type summary struct {
	DocumentID     string                           `json:"document_id"`
	Namespace      string                           `json:"namespace,omitempty"`
	Sentences      int                              `json:"sentences"`
	TriplesCount   int                              `json:"triples_count"`
	Clusters       int                              `json:"clusters"`
	LinkedClusters int                              `json:"linked_clusters"`
	Linked         bool                             `json:"linked"`
	Errors         []common.ErrorRecord             `json:"errors"`
	Warnings       []common.ClusterReferenceWarning `json:"warnings"`
	Failure        string                           `json:"failure,omitempty"`
	Output         string                           `json:"output,omitempty"`
}

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "amrlink:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	env := pipeline.ConfigFromEnv()

	fs := flag.NewFlagSet("amrlink", flag.ContinueOnError)
	fs.SetOutput(stderr)
	docPath := fs.String("doc", "", "document JSON file or s3://bucket/key")
	converterCmd := fs.String("converter", strings.Join(env.ConverterCmd, " "), "AMR to RDF converter command")
	corefCmd := fs.String("coref", strings.Join(env.CorefCmd, " "), "coreference command")
	clustersPath := fs.String("clusters", "", "saved coreference clusters JSON, replaces -coref")
	format := fs.String("format", env.Format, "converter output format: n3, ttl or nt")
	parallel := fs.Int("parallel", env.ParallelSentences, "concurrent sentence conversions")
	timeout := fs.Duration("timeout", env.SentenceTimeout, "per sentence conversion timeout")
	retries := fs.Int("retries", env.MaxRetries, "conversion retries per sentence")
	outPath := fs.String("out", "", "write the document graph to this file")
	outFormat := fs.String("out-format", "ttl", "graph output format: ttl, nt or n3")
	debug := fs.Bool("debug", util.GetEnvBool("DEBUG", false), "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" {
		fs.Usage()
		return errors.New("-doc is required")
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  *debug,
		Output: stderr,
	}))

	exportFormat, err := common.ParseFormat(*outFormat)
	if err != nil {
		return err
	}

	var resolver coref.Resolver
	if *clustersPath != "" {
		data, err := os.ReadFile(*clustersPath)
		if err != nil {
			return err
		}
		clusters, err := coref.DecodeClusters(data)
		if err != nil {
			return err
		}
		resolver = coref.StaticFromClusters(clusters)
	}

	client, err := pipeline.NewGraphClient(pipeline.Config{
		ConverterCmd:      strings.Fields(*converterCmd),
		Format:            *format,
		SentenceTimeout:   *timeout,
		ParallelSentences: *parallel,
		MaxRetries:        *retries,
		CorefCmd:          strings.Fields(*corefCmd),
		CorefTimeout:      env.CorefTimeout,
	}, resolver)
	if err != nil {
		return err
	}

	doc, err := loadDocument(ctx, *docPath)
	if err != nil {
		return err
	}

	result, dg, runErr := client.ProcessDocument(ctx, doc)

	out := summary{
		DocumentID:     result.DocumentID,
		Namespace:      result.Namespace.String(),
		Sentences:      result.Sentences,
		TriplesCount:   result.TriplesCount,
		Clusters:       result.Clusters,
		LinkedClusters: result.LinkedClusters,
		Linked:         result.Linked,
		Errors:         store.ErrorRecords(result.Errors),
		Warnings:       result.Warnings,
	}
	if runErr != nil {
		out.Failure = runErr.Error()
	}

	if dg != nil && *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		if err := dg.Encode(f, exportFormat); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		out.Output = *outPath
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return runErr
}

func loadDocument(ctx context.Context, path string) (common.Document, error) {
	rest, ok := strings.CutPrefix(path, "s3://")
	if !ok {
		return loader.Load(ctx, ioloader.NewIODocumentLoader(), path)
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return common.Document{}, fmt.Errorf("invalid s3 path %q", path)
	}
	l, err := s3loader.NewS3DocumentLoader(ctx, s3loader.NewS3DocumentLoaderParams{
		Bucket:    bucket,
		Endpoint:  util.GetEnv("AWS_ENDPOINT"),
		Region:    util.GetEnv("AWS_REGION"),
		AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
		SecretKey: util.GetEnv("AWS_SECRET_KEY"),
	})
	if err != nil {
		return common.Document{}, err
	}
	return loader.Load(ctx, l, key)
}
