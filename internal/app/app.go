// Package app wires the service together and owns the HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropcode/dropcode/internal/blob"
	"github.com/dropcode/dropcode/internal/config"
	"github.com/dropcode/dropcode/internal/handler"
	"github.com/dropcode/dropcode/internal/index"
	middie "github.com/dropcode/dropcode/internal/middleware"
	"github.com/dropcode/dropcode/internal/sweeper"
	"github.com/dropcode/dropcode/internal/transfer"
	"github.com/dropcode/dropcode/pkg/log"
)

// App represents the application.
type App struct {
	server  *echo.Echo
	sweeper *sweeper.Sweeper
	idx     *index.Index
	cfg     *config.Config
}

// New creates a new application instance.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log.Init(cfg.Log.Level, cfg.Log.Format)
	log.Infow("configuration loaded",
		"port", cfg.Server.Port,
		"storage_driver", cfg.Storage.Driver,
		"max_size_mib", cfg.Storage.MaxSizeMiB,
		"retention", cfg.Retention.Window.String(),
		"sweep_interval", cfg.Retention.SweepInterval.String(),
	)

	idx, err := index.New(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata index: %w", err)
	}

	store, err := newBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	svc := transfer.NewService(store, idx, cfg.Storage.MaxSizeBytes(), cfg.Retention.Window, cfg.Server.BaseURL)
	sw := sweeper.New(idx, store, cfg.Retention.SweepInterval)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Large uploads need generous timeouts
	e.Server.ReadTimeout = 10 * time.Minute
	e.Server.WriteTimeout = 10 * time.Minute
	e.Server.IdleTimeout = 15 * time.Minute
	e.Server.ReadHeaderTimeout = 30 * time.Second

	e.Use(middleware.Recover())
	e.Use(middie.RequestLogger())
	e.Use(middie.Metrics())
	e.Use(middie.SecurityHeaders())

	app := &App{
		server:  e,
		sweeper: sw,
		idx:     idx,
		cfg:     cfg,
	}

	registerRoutes(e, app, svc)
	return app, nil
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return blob.NewMinioStore(cfg.MinIO, cfg.Storage.MaxSizeBytes())
	default:
		return blob.NewDiskStore(cfg.Storage.UploadPath, cfg.Storage.MaxSizeBytes())
	}
}

// registerRoutes registers all HTTP routes.
func registerRoutes(e *echo.Echo, app *App, svc *transfer.Service) {
	e.Use(middleware.BodyLimit(
		fmt.Sprintf("%dM", int(app.cfg.Storage.MaxSizeMiB)+1),
	))

	h := handler.NewHandler(svc, app.cfg)

	api := e.Group("/api/files")
	api.POST("/upload", h.HandleUpload)
	api.GET("/info/:code", h.HandleInfo)
	api.GET("/download/:code", h.HandleDownload)

	e.GET("/healthz", h.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start starts the sweeper and the HTTP server.
func (a *App) Start() {
	a.sweeper.Start()

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)

	go func() {
		if err := a.server.Start(serverAddr); err != nil {
			log.Infof("Server stopped: %v", err)
		}
	}()

	log.Infof("Server started on %s", serverAddr)
}

// Stop stops the background services.
func (a *App) Stop() {
	a.sweeper.Stop()
	if err := a.idx.Close(); err != nil {
		log.Error("Failed to close metadata index", err)
	}
}

// Shutdown gracefully shuts down the server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
