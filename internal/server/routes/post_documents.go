package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/amrlink/internal/queue"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/loader"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/store"

	"github.com/labstack/echo/v4"
)

// CreateDocumentHandler stores an uploaded document and queues it for
// linking. It answers 202 with the document key.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentResponse struct {
		Message       string `json:"message"`
		Key           string `json:"key,omitempty"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	doc := new(common.Document)
	if err := c.Bind(doc); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := loader.ValidateDocument(*doc); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	a := app(c)

	key, err := util.NewDocumentKey()
	if err != nil {
		logger.Error("[Server] Failed to create document key", "err", err)
		return internalError(c)
	}
	correlationID, err := util.NewDocumentKey()
	if err != nil {
		logger.Error("[Server] Failed to create correlation id", "err", err)
		return internalError(c)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return internalError(c)
	}
	if _, err := a.Objects.PutDocument(ctx, key, body); err != nil {
		logger.Error("[Server] Failed to upload document", "document", key, "err", err)
		return internalError(c)
	}
	if err := a.Storage.CreateDocument(ctx, key, doc.Title); err != nil {
		logger.Error("[Server] Failed to create document", "document", key, "err", err)
		return internalError(c)
	}

	msg, err := json.Marshal(queue.LinkMessage{DocumentKey: key, CorrelationID: correlationID})
	if err != nil {
		return internalError(c)
	}
	if err := queue.PublishFIFO(a.Queue, queue.LinkQueue, msg); err != nil {
		logger.Error("[Server] Failed to queue document", "document", key, "err", err)
		if err := a.Storage.UpdateDocumentStatus(ctx, key, store.StatusFailed, "failed to queue document"); err != nil {
			logger.Warn("[Server] Failed to mark document as failed", "document", key, "err", err)
		}
		return internalError(c)
	}

	logger.Info("[Server] Document queued", "document", key, "correlation_id", correlationID, "sentences", len(doc.Sentences))
	return c.JSON(http.StatusAccepted, createDocumentResponse{
		Message:       "Document queued",
		Key:           key,
		CorrelationID: correlationID,
	})
}

// ProcessDocumentHandler runs the pipeline synchronously and returns the
// result together with the serialized graph.
func ProcessDocumentHandler(c echo.Context) error {
	type processDocumentBody struct {
		Document common.Document `json:"document" validate:"required"`
		Format   string          `json:"format" validate:"omitempty,oneof=n3 ttl nt"`
	}

	type processDocumentResponse struct {
		Message string                 `json:"message"`
		Result  *common.DocumentResult `json:"result,omitempty"`
		Format  common.Format          `json:"format,omitempty"`
		Graph   string                 `json:"graph,omitempty"`
		Error   string                 `json:"error,omitempty"`
	}

	data := new(processDocumentBody)
	if err := c.Bind(data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := loader.ValidateDocument(data.Document); err != nil {
		return badRequest(c, err.Error())
	}

	format := common.FormatTurtle
	if data.Format != "" {
		format = common.Format(data.Format)
	}

	a := app(c)
	if a.Processor == nil {
		return c.JSON(http.StatusServiceUnavailable, processDocumentResponse{Message: "Synchronous processing is not configured"})
	}

	ctx := c.Request().Context()
	result, dg, runErr := a.Processor.ProcessDocument(ctx, data.Document)
	if runErr != nil && ctx.Err() != nil {
		return c.JSON(http.StatusServiceUnavailable, processDocumentResponse{Message: "Request cancelled"})
	}

	res := processDocumentResponse{Message: "Document processed", Result: result}
	if dg != nil {
		text, err := encodeGraph(dg, format)
		if err != nil {
			logger.Error("[Server] Failed to encode graph", "err", err)
			return internalError(c)
		}
		res.Format = format
		res.Graph = text
	}

	if runErr != nil {
		res.Message = "Document processed with failure"
		res.Error = runErr.Error()
		status := http.StatusUnprocessableEntity
		if errors.Is(runErr, common.ErrNamespaceNotFound) && dg != nil {
			// the unlinked graph is still useful
			status = http.StatusOK
		}
		return c.JSON(status, res)
	}
	return c.JSON(http.StatusOK, res)
}
