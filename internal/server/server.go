package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/migrate"
	"github.com/OFFIS-RIT/amrlink/internal/pipeline"
	"github.com/OFFIS-RIT/amrlink/internal/queue"
	mid "github.com/OFFIS-RIT/amrlink/internal/server/middleware"
	"github.com/OFFIS-RIT/amrlink/internal/storage"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	graphstorage "github.com/OFFIS-RIT/amrlink/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance with middleware and routes around app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "64M")))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := migrate.Up(util.GetEnvString("MIGRATIONS_PATH", "migrations"), databaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create s3 client", "err", err)
	}
	objects, err := storage.NewStoreFromEnv(ctx, s3Client)
	if err != nil {
		logger.Fatal("Failed to create object store", "err", err)
	}

	exportFormat, err := common.ParseFormat(util.GetEnvString("GRAPH_EXPORT_FORMAT", "ttl"))
	if err != nil {
		logger.Fatal("Invalid GRAPH_EXPORT_FORMAT", "err", err)
	}

	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	app := &mid.App{
		Storage:        graphstorage.NewGraphDBStorageWithConnection(
			conn,
			graphstorage.WithStatementChunk(int(util.GetEnvNumeric("STATEMENT_CHUNK", 5000))),
		),
		Objects:        objects,
		Queue:          ch,
		ExportFormat:   exportFormat,
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   masterUserID,
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}

	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Keyfunc = k.Keyfunc
	} else {
		logger.Warn("AUTH_URL is not set, only the master API key is accepted")
	}

	if graphClient, err := pipeline.NewGraphClient(pipeline.ConfigFromEnv(), nil); err != nil {
		logger.Warn("Synchronous processing disabled", "err", err)
	} else {
		app.Processor = graphClient
	}

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
