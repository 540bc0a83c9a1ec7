// Package index is the metadata index: the single source of truth for the
// share code to file record mapping, backed by SQLite.
package index

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/internal/sharecode"
)

type Index struct {
	db *sql.DB
}

// New opens the SQLite database and creates the schema if needed.
// Timestamps are stored as unix nanoseconds so expiry comparisons are plain
// integer comparisons.
func New(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			file_id      TEXT PRIMARY KEY,
			share_code   TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			file_size    INTEGER NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'active',
			uploaded_at  INTEGER NOT NULL,
			expires_at   INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_files_active_code
			ON files (share_code) WHERE status = 'active';
		CREATE INDEX IF NOT EXISTS idx_files_expires_at
			ON files (expires_at);
	`)
	if err != nil {
		return nil, err
	}

	return &Index{db: db}, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// Ping reports whether the database is reachable.
func (i *Index) Ping() error {
	return i.db.Ping()
}

// Insert stores a new record. The share code is normalized before storage;
// an active record already holding the code fails with ErrDuplicateCode.
// The generator should have checked uniqueness already, this is the index
// enforcing its own invariant.
func (i *Index) Insert(rec domain.FileRecord) error {
	stmt, err := i.db.Prepare(`
		INSERT INTO files (file_id, share_code, file_name, file_size, content_type, status, uploaded_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		rec.FileID,
		sharecode.Normalize(rec.ShareCode),
		rec.FileName,
		rec.FileSize,
		rec.ContentType,
		string(rec.Status),
		rec.UploadedAt.UnixNano(),
		rec.ExpiresAt.UnixNano(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

// Lookup resolves a share code to its record. Unknown codes, non-active
// records and records past expiry all come back as ErrNotFound, so a caller
// cannot tell "never existed" from "expired".
func (i *Index) Lookup(code string, now time.Time) (domain.FileRecord, error) {
	row := i.db.QueryRow(`
		SELECT file_id, share_code, file_name, file_size, content_type, status, uploaded_at, expires_at
		FROM files
		WHERE share_code = ? AND status = 'active' AND expires_at > ?
	`, sharecode.Normalize(code), now.UnixNano())

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FileRecord{}, domain.ErrNotFound
		}
		return domain.FileRecord{}, err
	}
	return rec, nil
}

// CodeActive reports whether an active record holds the code, regardless of
// expiry. An expired code only becomes reusable after the sweeper purged it.
func (i *Index) CodeActive(code string) (bool, error) {
	var n int
	err := i.db.QueryRow(
		`SELECT COUNT(*) FROM files WHERE share_code = ? AND status = 'active'`,
		sharecode.Normalize(code),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Due returns every record whose expiry has passed, including records a
// previous sweep already marked expired but failed to purge.
func (i *Index) Due(now time.Time) ([]domain.FileRecord, error) {
	rows, err := i.db.Query(`
		SELECT file_id, share_code, file_name, file_size, content_type, status, uploaded_at, expires_at
		FROM files
		WHERE expires_at <= ?
	`, now.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []domain.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, rec)
	}
	return due, rows.Err()
}

// MarkExpired flips a record to expired, making its code unresolvable.
func (i *Index) MarkExpired(fileID string) error {
	_, err := i.db.Exec(
		`UPDATE files SET status = ? WHERE file_id = ?`,
		string(domain.StatusExpired), fileID,
	)
	return err
}

// Remove deletes the record. Removing an unknown id is not an error.
func (i *Index) Remove(fileID string) error {
	_, err := i.db.Exec(`DELETE FROM files WHERE file_id = ?`, fileID)
	return err
}

// Count returns the number of records, any status. Used by tests and the
// sweeper's pass logging.
func (i *Index) Count() (int, error) {
	var n int
	err := i.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.FileRecord, error) {
	var rec domain.FileRecord
	var status string
	var uploadedAt, expiresAt int64

	err := s.Scan(
		&rec.FileID,
		&rec.ShareCode,
		&rec.FileName,
		&rec.FileSize,
		&rec.ContentType,
		&status,
		&uploadedAt,
		&expiresAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Status = domain.Status(status)
	rec.UploadedAt = time.Unix(0, uploadedAt).UTC()
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return rec, nil
}
