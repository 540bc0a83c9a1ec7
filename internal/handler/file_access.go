package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dropcode/dropcode/pkg/log"
)

type infoResponse struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	UploadTime time.Time `json:"uploadTime"`
	ExpiryTime time.Time `json:"expiryTime"`
}

// HandleInfo returns the metadata behind a share code without the bytes, so
// the front end can show name and size before the user commits to the
// download.
func (h *Handler) HandleInfo(c echo.Context) error {
	rec, err := h.svc.Info(c.Request().Context(), c.Param("code"))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, infoResponse{
		FileName:   rec.FileName,
		FileSize:   rec.FileSize,
		UploadTime: rec.UploadedAt,
		ExpiryTime: rec.ExpiresAt,
	})
}

// HandleDownload streams the file behind a share code.
func (h *Handler) HandleDownload(c echo.Context) error {
	dl, err := h.svc.Resolve(c.Request().Context(), c.Param("code"))
	if err != nil {
		return h.respondError(c, err)
	}
	defer dl.Content.Close()

	rec := dl.Record
	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", rec.FileName))
	c.Response().Header().Set(echo.HeaderContentLength,
		strconv.FormatInt(rec.FileSize, 10))

	filesDownloaded.Inc()
	log.Infow("file served",
		"code", rec.ShareCode,
		"name", rec.FileName,
		"size", rec.FileSize,
		"clientIP", c.RealIP(),
	)

	return c.Stream(http.StatusOK, contentType, dl.Content)
}
