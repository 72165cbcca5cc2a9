package server

import (
	"github.com/OFFIS-RIT/amrlink/internal/server/middleware"
	"github.com/OFFIS-RIT/amrlink/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Document routes
	apiRoutes.POST("/documents", routes.CreateDocumentHandler, middleware.RequirePermission("document.create"))
	apiRoutes.POST("/documents/process", routes.ProcessDocumentHandler, middleware.RequirePermission("document.process"))
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler, middleware.RequirePermission("document.view"))
	apiRoutes.GET("/documents/:id/graph", routes.GetDocumentGraphHandler, middleware.RequirePermission("document.view"))
	apiRoutes.GET("/documents/:id/graph/link", routes.GetDocumentGraphLinkHandler, middleware.RequirePermission("document.view"))
	apiRoutes.DELETE("/documents/:id", routes.DeleteDocumentHandler, middleware.RequirePermission("document.delete"))
}
