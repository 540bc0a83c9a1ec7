// Package domain holds the file record model and the error taxonomy shared
// across the storage, index and transfer layers.
package domain

import "time"

// Status is the lifecycle state of a file record.
type Status string

const (
	// StatusActive means the file is resolvable by its share code.
	StatusActive Status = "active"
	// StatusExpired means the record passed its expiry; the sweeper flips a
	// record to expired before reclaiming its blob, so an expired record is
	// never served.
	StatusExpired Status = "expired"
)

// FileRecord describes one uploaded file.
type FileRecord struct {
	FileID      string    `json:"file_id"`
	ShareCode   string    `json:"share_code"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type,omitempty"`
	Status      Status    `json:"status"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the record's retention window has passed.
func (r *FileRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
