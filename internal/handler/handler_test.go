package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropcode/dropcode/internal/blob"
	"github.com/dropcode/dropcode/internal/config"
	"github.com/dropcode/dropcode/internal/index"
	"github.com/dropcode/dropcode/internal/transfer"
)

func setupTestHandler(t *testing.T, maxSizeMiB float64, retention time.Duration) *Handler {
	tempDir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080/",
		},
		Storage: config.StorageConfig{
			Driver:     "disk",
			UploadPath: filepath.Join(tempDir, "uploads"),
			SQLitePath: filepath.Join(tempDir, "test.db"),
			MaxSizeMiB: maxSizeMiB,
		},
		Retention: config.RetentionConfig{
			Window:        retention,
			SweepInterval: time.Minute,
		},
	}

	idx, err := index.New(cfg.Storage.SQLitePath)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	store, err := blob.NewDiskStore(cfg.Storage.UploadPath, cfg.Storage.MaxSizeBytes())
	require.NoError(t, err)

	svc := transfer.NewService(store, idx, cfg.Storage.MaxSizeBytes(), cfg.Retention.Window, cfg.Server.BaseURL)
	return NewHandler(svc, cfg)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, h *Handler, filename, content string) *httptest.ResponseRecorder {
	body, contentType := multipartBody(t, filename, content)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HandleUpload(c))
	return rec
}

func TestUploadHandler(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	rec := doUpload(t, h, "hello.txt", "hello12345")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ShareCode  string    `json:"shareCode"`
		ShareLink  string    `json:"shareLink"`
		FileName   string    `json:"fileName"`
		FileSize   int64     `json:"fileSize"`
		UploadTime time.Time `json:"uploadTime"`
		ExpiryTime time.Time `json:"expiryTime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Regexp(t, `^[A-Z0-9]{6}$`, resp.ShareCode)
	assert.Equal(t, "hello.txt", resp.FileName)
	assert.Equal(t, int64(10), resp.FileSize)
	assert.Contains(t, resp.ShareLink, "?code="+resp.ShareCode)
	assert.WithinDuration(t, resp.UploadTime.Add(24*time.Hour), resp.ExpiryTime, time.Second)
}

func TestUploadHandlerMissingFileField(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HandleUpload(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerTooLarge(t *testing.T) {
	// cap of ~104 bytes
	h := setupTestHandler(t, 0.0001, 24*time.Hour)

	rec := doUpload(t, h, "big.bin", strings.Repeat("x", 500))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadHandlerEmptyFile(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	rec := doUpload(t, h, "empty.txt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func uploadedCode(t *testing.T, h *Handler, filename, content string) string {
	rec := doUpload(t, h, filename, content)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ShareCode string `json:"shareCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ShareCode
}

func TestInfoHandler(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)
	code := uploadedCode(t, h, "hello.txt", "hello12345")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/info/"+code, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	// users type codes in any case
	c.SetParamValues(strings.ToLower(code))

	require.NoError(t, h.HandleInfo(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello.txt", resp.FileName)
	assert.Equal(t, int64(10), resp.FileSize)
}

func TestInfoHandlerUnknownCode(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/info/ZZZZZ2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("ZZZZZ2")

	require.NoError(t, h.HandleInfo(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadHandler(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)
	code := uploadedCode(t, h, "hello.txt", "hello12345")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/download/"+code, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues(code)

	require.NoError(t, h.HandleDownload(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "hello12345", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `attachment; filename="hello.txt"`)
	assert.Equal(t, "10", rec.Header().Get(echo.HeaderContentLength))
}

func TestDownloadHandlerUnknownCode(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/download/AAAAA2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("AAAAA2")

	require.NoError(t, h.HandleDownload(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadHandlerExpiredCode(t *testing.T) {
	h := setupTestHandler(t, 100, time.Second)
	code := uploadedCode(t, h, "tmp.txt", "short lived")

	time.Sleep(2 * time.Second)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/download/"+code, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues(code)

	require.NoError(t, h.HandleDownload(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := setupTestHandler(t, 100, 24*time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HandleHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
