package routes

import (
	"bytes"
	"net/http"

	"github.com/OFFIS-RIT/amrlink/internal/server/middleware"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"

	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
}

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// documentKeyParam returns the :id path parameter if it looks like a
// document key.
func documentKeyParam(c echo.Context) (string, bool) {
	key := c.Param("id")
	return key, util.IsDocumentKey(key)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, messageResponse{Message: message})
}

func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
}

func encodeGraph(dg *graph.DocumentGraph, format common.Format) (string, error) {
	var buf bytes.Buffer
	if err := dg.Encode(&buf, format); err != nil {
		return "", err
	}
	return buf.String(), nil
}
