package middleware

import (
	"context"

	"github.com/OFFIS-RIT/amrlink/internal/queue"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// DocumentObjects is the object storage used by the handlers.
// *storage.Store implements it.
type DocumentObjects interface {
	PutDocument(ctx context.Context, key string, body []byte) (string, error)
	DownloadLink(ctx context.Context, path string) (string, error)
}

type App struct {
	Storage store.GraphStorage
	Objects DocumentObjects
	Queue   queue.Channel
	// Processor runs the pipeline for synchronous requests. It is nil when
	// no converter is configured.
	Processor queue.DocumentProcessor
	// ExportFormat is the serialization the worker uploads.
	ExportFormat common.Format
	// Keyfunc verifies bearer JWTs. Nil disables JWT auth.
	Keyfunc        jwt.Keyfunc
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
