// Package transfer orchestrates uploads and downloads: it ties the blob
// store, the metadata index and the code generator together.
package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dropcode/dropcode/internal/blob"
	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/internal/index"
	"github.com/dropcode/dropcode/internal/sharecode"
	"github.com/dropcode/dropcode/pkg/log"
)

// Service implements the upload and resolve workflows.
type Service struct {
	store     blob.Store
	idx       *index.Index
	gen       *sharecode.Generator
	maxSize   int64
	retention time.Duration
	baseURL   string
}

// NewService creates a Service. maxSize is the upload cap in bytes and
// retention the window after which uploads expire.
func NewService(store blob.Store, idx *index.Index, maxSize int64, retention time.Duration, baseURL string) *Service {
	return &Service{
		store:     store,
		idx:       idx,
		gen:       sharecode.NewGenerator(idx.CodeActive),
		maxSize:   maxSize,
		retention: retention,
		baseURL:   baseURL,
	}
}

// UploadResult is what a successful upload hands back to the client.
type UploadResult struct {
	ShareCode   string
	ShareLink   string
	FileName    string
	FileSize    int64
	ContentType string
	UploadedAt  time.Time
	ExpiresAt   time.Time
}

// Upload stores the stream, mints a share code and records the metadata.
// declaredSize is checked before any byte is persisted; the blob store
// enforces the cap again mid-stream for clients that lie. No partial blob
// survives any failure path.
func (s *Service) Upload(ctx context.Context, r io.Reader, fileName string, declaredSize int64, contentType string) (*UploadResult, error) {
	if fileName == "" {
		return nil, domain.ErrMalformedRequest
	}
	if declaredSize > s.maxSize {
		return nil, domain.ErrPayloadTooLarge
	}

	fileID := uuid.NewString()

	size, err := s.store.Put(ctx, fileID, r)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		s.discard(ctx, fileID)
		return nil, domain.ErrMalformedRequest
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = s.sniffContentType(ctx, fileID)
	}

	code, err := s.gen.New()
	if err != nil {
		s.discard(ctx, fileID)
		return nil, err
	}

	now := time.Now().UTC()
	rec := domain.FileRecord{
		FileID:      fileID,
		ShareCode:   code,
		FileName:    fileName,
		FileSize:    size,
		ContentType: contentType,
		Status:      domain.StatusActive,
		UploadedAt:  now,
		ExpiresAt:   now.Add(s.retention),
	}

	if err := s.idx.Insert(rec); err != nil {
		s.discard(ctx, fileID)
		return nil, err
	}

	log.Infow("file uploaded",
		"code", code,
		"name", fileName,
		"size", size,
		"expires_at", rec.ExpiresAt,
	)

	return &UploadResult{
		ShareCode:   code,
		ShareLink:   s.ShareLink(code),
		FileName:    fileName,
		FileSize:    size,
		ContentType: contentType,
		UploadedAt:  now,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

// Download couples a record with a single-pass reader over its bytes.
// The caller owns Content and must close it.
type Download struct {
	Content io.ReadCloser
	Record  domain.FileRecord
}

// Resolve maps a share code to the stored file. Unknown and expired codes
// are both ErrNotFound.
func (s *Service) Resolve(ctx context.Context, code string) (*Download, error) {
	rec, err := s.idx.Lookup(code, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	content, err := s.store.Get(ctx, rec.FileID)
	if err != nil {
		return nil, err
	}

	return &Download{Content: content, Record: rec}, nil
}

// Info returns the metadata for a share code without touching the blob.
func (s *Service) Info(ctx context.Context, code string) (domain.FileRecord, error) {
	return s.idx.Lookup(code, time.Now().UTC())
}

// Ping reports whether the metadata index is reachable.
func (s *Service) Ping() error {
	return s.idx.Ping()
}

// ShareLink builds the link the browser front end puts on the clipboard.
func (s *Service) ShareLink(code string) string {
	return fmt.Sprintf("%s?code=%s", s.baseURL, code)
}

// sniffContentType detects the content type from the stored bytes. Falls
// back to application/octet-stream when detection fails.
func (s *Service) sniffContentType(ctx context.Context, fileID string) string {
	rc, err := s.store.Get(ctx, fileID)
	if err != nil {
		return "application/octet-stream"
	}
	defer rc.Close()

	mtype, err := mimetype.DetectReader(rc)
	if err != nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

// discard removes a blob that never made it into the index.
func (s *Service) discard(ctx context.Context, fileID string) {
	if err := s.store.Delete(ctx, fileID); err != nil {
		log.Warnf("Failed to clean up orphaned blob %s: %v", fileID, err)
	}
}
