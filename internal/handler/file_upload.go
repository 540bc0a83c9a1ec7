package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/pkg/log"
)

// multipart framing and form fields on top of the file itself
const uploadOverhead = 1 << 20

type uploadResponse struct {
	ShareCode  string    `json:"shareCode"`
	ShareLink  string    `json:"shareLink"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	UploadTime time.Time `json:"uploadTime"`
	ExpiryTime time.Time `json:"expiryTime"`
}

// HandleUpload accepts a multipart upload and returns the share code.
func (h *Handler) HandleUpload(c echo.Context) error {
	// Hard stop on abusive request bodies before multipart parsing buffers
	// anything. The blob store enforces the exact cap on the file stream.
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.cfg.Storage.MaxSizeBytes()+uploadOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("Upload rejected, no file field: %v", err)
		return h.respondError(c, domain.ErrMalformedRequest)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return h.respondError(c, domain.ErrMalformedRequest)
	}
	defer src.Close()

	result, err := h.svc.Upload(
		c.Request().Context(),
		src,
		fileHeader.Filename,
		fileHeader.Size,
		fileHeader.Header.Get(echo.HeaderContentType),
	)
	if err != nil {
		log.Warnf("Upload failed for %q: %v", fileHeader.Filename, err)
		return h.respondError(c, err)
	}

	filesUploaded.Inc()
	bytesUploaded.Add(float64(result.FileSize))

	return c.JSON(http.StatusOK, uploadResponse{
		ShareCode:  result.ShareCode,
		ShareLink:  result.ShareLink,
		FileName:   result.FileName,
		FileSize:   result.FileSize,
		UploadTime: result.UploadedAt,
		ExpiryTime: result.ExpiresAt,
	})
}
