package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/amrlink/internal/storage"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/store"

	"github.com/labstack/echo/v4"
)

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, messageResponse{Message: "Document not found"})
}

// GetDocumentHandler returns the stored outcome of a document.
func GetDocumentHandler(c echo.Context) error {
	key, ok := documentKeyParam(c)
	if !ok {
		return badRequest(c, "Invalid document id")
	}

	doc, err := app(c).Storage.GetDocument(c.Request().Context(), key)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return notFound(c)
	}
	if err != nil {
		logger.Error("[Server] Failed to get document", "document", key, "err", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, doc)
}

// GetDocumentGraphHandler serializes the stored graph of a document. The
// format query parameter selects ttl (default), nt or n3.
func GetDocumentGraphHandler(c echo.Context) error {
	key, ok := documentKeyParam(c)
	if !ok {
		return badRequest(c, "Invalid document id")
	}
	format := common.FormatTurtle
	if q := c.QueryParam("format"); q != "" {
		f, err := common.ParseFormat(q)
		if err != nil {
			return badRequest(c, err.Error())
		}
		format = f
	}

	ctx := c.Request().Context()
	st := app(c).Storage

	doc, err := st.GetDocument(ctx, key)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return notFound(c)
	}
	if err != nil {
		logger.Error("[Server] Failed to get document", "document", key, "err", err)
		return internalError(c)
	}
	if doc.Status == store.StatusPending || doc.Status == store.StatusProcessing {
		return c.JSON(http.StatusConflict, messageResponse{Message: "Document is still being processed"})
	}

	stmts, err := st.GetStatements(ctx, key)
	if err != nil {
		logger.Error("[Server] Failed to get statements", "document", key, "err", err)
		return internalError(c)
	}
	dg, err := store.GraphFromStatements(stmts)
	if err != nil {
		logger.Error("[Server] Failed to rebuild graph", "document", key, "err", err)
		return internalError(c)
	}
	text, err := encodeGraph(dg, format)
	if err != nil {
		logger.Error("[Server] Failed to encode graph", "document", key, "err", err)
		return internalError(c)
	}
	return c.Blob(http.StatusOK, format.MediaType(), []byte(text))
}

// GetDocumentGraphLinkHandler returns a presigned link to the graph export
// uploaded by the worker.
func GetDocumentGraphLinkHandler(c echo.Context) error {
	type linkResponse struct {
		URL string `json:"url"`
	}

	key, ok := documentKeyParam(c)
	if !ok {
		return badRequest(c, "Invalid document id")
	}

	ctx := c.Request().Context()
	a := app(c)

	doc, err := a.Storage.GetDocument(ctx, key)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return notFound(c)
	}
	if err != nil {
		logger.Error("[Server] Failed to get document", "document", key, "err", err)
		return internalError(c)
	}
	if doc.Status != store.StatusCompleted && doc.TriplesCount == 0 {
		return c.JSON(http.StatusConflict, messageResponse{Message: "No graph export available"})
	}

	link, err := a.Objects.DownloadLink(ctx, storage.GraphPath(key, a.ExportFormat))
	if err != nil {
		logger.Error("[Server] Failed to create download link", "document", key, "err", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, linkResponse{URL: link})
}
