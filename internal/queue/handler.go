package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/storage"
	"github.com/OFFIS-RIT/amrlink/internal/timing"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
	"github.com/OFFIS-RIT/amrlink/pkg/leaselock"
	"github.com/OFFIS-RIT/amrlink/pkg/loader"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/store"
)

// DocumentProcessor builds the linked graph of a document.
// *graph.GraphClient implements it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc common.Document) (*common.DocumentResult, *graph.DocumentGraph, error)
}

// ObjectStore holds uploaded documents and graph exports.
// *storage.Store implements it.
type ObjectStore interface {
	GetFile(ctx context.Context, path string) ([]byte, error)
	PutGraph(ctx context.Context, key string, format common.Format, body []byte) (string, error)
	DeleteDocument(ctx context.Context, key string) error
}

// Locker serializes work on one document across workers.
// *leaselock.Client implements it.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

type Worker struct {
	processor    DocumentProcessor
	storage      store.GraphStorage
	objects      ObjectStore
	locks        Locker
	exportFormat common.Format
	leaseOptions leaselock.Options
}

type NewWorkerParams struct {
	Processor DocumentProcessor
	Storage   store.GraphStorage
	Objects   ObjectStore
	Locks     Locker
	// ExportFormat is the serialization uploaded next to the document.
	// Defaults to Turtle.
	ExportFormat common.Format
	LeaseTTL     time.Duration
	WorkerID     string
}

func NewWorker(params NewWorkerParams) (*Worker, error) {
	if params.Processor == nil || params.Storage == nil || params.Objects == nil || params.Locks == nil {
		return nil, errors.New("worker needs a processor, storage, objects and locks")
	}
	format := params.ExportFormat
	if format == "" {
		format = common.FormatTurtle
	}
	return &Worker{
		processor:    params.Processor,
		storage:      params.Storage,
		objects:      params.Objects,
		locks:        params.Locks,
		exportFormat: format,
		leaseOptions: leaselock.Options{
			TTL:          params.LeaseTTL,
			Wait:         false,
			TokenPrefix:  params.WorkerID + ":",
			WaitInterval: time.Second,
		},
	}, nil
}

// Handle dispatches a message body by queue name.
func (w *Worker) Handle(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case LinkQueue:
		return w.ProcessLinkMessage(ctx, body)
	case DeleteQueue:
		return w.ProcessDeleteMessage(ctx, body)
	default:
		return fmt.Errorf("unknown queue %q", queueName)
	}
}

// ProcessLinkMessage builds, links and stores the graph of the document
// named by the message. Failures of the pipeline itself are recorded on the
// document and are not returned; a returned error means the message should
// be retried.
func (w *Worker) ProcessLinkMessage(ctx context.Context, body []byte) error {
	msg, err := DecodeLinkMessage(body)
	if err != nil {
		return err
	}
	key := msg.DocumentKey

	return w.locks.WithLease(ctx, leaselock.DocumentKey(key), w.leaseOptions, func(ctx context.Context) error {
		start := time.Now()
		if err := w.storage.UpdateDocumentStatus(ctx, key, store.StatusProcessing, ""); err != nil {
			return err
		}

		raw, err := w.objects.GetFile(ctx, storage.DocumentPath(key))
		if err != nil {
			return err
		}
		doc, err := loader.ParseDocument(bytes.NewReader(raw))
		if err != nil {
			// an invalid upload never gets better
			logger.Error("[Queue] Invalid document", "document", key, "err", err)
			return w.storage.UpdateDocumentStatus(ctx, key, store.StatusFailed, err.Error())
		}

		result, dg, runErr := w.processor.ProcessDocument(ctx, doc)
		if runErr != nil && ctx.Err() != nil {
			return errors.Join(runErr, ctx.Err())
		}
		if runErr != nil {
			logger.Warn("[Queue] Document processed with failure", "document", key, "correlation_id", msg.CorrelationID, "err", runErr)
		}

		if dg != nil {
			var buf bytes.Buffer
			if err := dg.Encode(&buf, w.exportFormat); err != nil {
				return err
			}
			if _, err := w.objects.PutGraph(ctx, key, w.exportFormat, buf.Bytes()); err != nil {
				return err
			}
		}

		if err := w.storage.SaveDocument(ctx, key, result, dg, runErr); err != nil {
			return err
		}

		logger.Info(
			"[Queue] Document stored",
			"document", key,
			"correlation_id", msg.CorrelationID,
			"linked", result != nil && result.Linked,
			"duration", timing.Since(start),
		)
		return nil
	})
}

// ProcessDeleteMessage removes a document, its statements and its exports.
// Deleting a missing document succeeds.
func (w *Worker) ProcessDeleteMessage(ctx context.Context, body []byte) error {
	msg, err := DecodeDeleteMessage(body)
	if err != nil {
		return err
	}
	key := msg.DocumentKey

	return w.locks.WithLease(ctx, leaselock.DocumentKey(key), w.leaseOptions, func(ctx context.Context) error {
		if err := w.storage.DeleteDocument(ctx, key); err != nil && !errors.Is(err, store.ErrDocumentNotFound) {
			return err
		}
		if err := w.objects.DeleteDocument(ctx, key); err != nil {
			return err
		}
		logger.Info("[Queue] Document deleted", "document", key)
		return nil
	})
}
