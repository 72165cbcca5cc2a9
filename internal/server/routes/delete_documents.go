package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/amrlink/internal/queue"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/store"

	"github.com/labstack/echo/v4"
)

// DeleteDocumentHandler queues the removal of a document and its exports.
func DeleteDocumentHandler(c echo.Context) error {
	key, ok := documentKeyParam(c)
	if !ok {
		return badRequest(c, "Invalid document id")
	}

	ctx := c.Request().Context()
	a := app(c)

	if _, err := a.Storage.GetDocument(ctx, key); errors.Is(err, store.ErrDocumentNotFound) {
		return notFound(c)
	} else if err != nil {
		logger.Error("[Server] Failed to get document", "document", key, "err", err)
		return internalError(c)
	}

	msg, err := json.Marshal(queue.DeleteMessage{DocumentKey: key})
	if err != nil {
		return internalError(c)
	}
	if err := queue.PublishFIFO(a.Queue, queue.DeleteQueue, msg); err != nil {
		logger.Error("[Server] Failed to queue deletion", "document", key, "err", err)
		return internalError(c)
	}

	return c.JSON(http.StatusAccepted, messageResponse{Message: "Document deletion queued"})
}
