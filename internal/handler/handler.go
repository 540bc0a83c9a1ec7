// Package handler exposes the transfer service over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dropcode/dropcode/internal/config"
	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/internal/transfer"
)

var (
	filesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropcode_files_uploaded_total",
		Help: "Total number of files uploaded.",
	})
	filesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropcode_files_downloaded_total",
		Help: "Total number of files downloaded.",
	})
	bytesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropcode_uploaded_bytes_total",
		Help: "Total bytes accepted by uploads.",
	})
)

// Handler handles HTTP requests.
type Handler struct {
	svc *transfer.Service
	cfg *config.Config
}

// NewHandler creates a new handler.
func NewHandler(svc *transfer.Service, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the error taxonomy to HTTP statuses. Everything not in
// the taxonomy is a plain 500; internal detail never reaches the client.
func (h *Handler) respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "file not found"})
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
	case errors.Is(err, domain.ErrMalformedRequest):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	case errors.Is(err, domain.ErrGenerationExhausted):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "temporarily unable to issue share codes"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "server error"})
	}
}

// HandleHealth reports liveness; it fails when the metadata index is gone.
func (h *Handler) HandleHealth(c echo.Context) error {
	if err := h.svc.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "index unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
