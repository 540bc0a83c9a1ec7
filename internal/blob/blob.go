// Package blob stores raw file bytes keyed by internal file id.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dropcode/dropcode/internal/domain"
)

// Store persists file content independently of its metadata.
type Store interface {
	// Put consumes r incrementally, enforcing the size cap while writing,
	// and returns the number of bytes stored. On any failure no partial
	// blob is left behind.
	Put(ctx context.Context, id string, r io.Reader) (int64, error)
	// Get returns a single-pass reader over the stored bytes.
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// DiskStore keeps blobs as files under a single directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

func (s *DiskStore) path(id string) string {
	// ids are minted internally, but never trust them as paths
	return filepath.Join(s.dir, filepath.Base(id))
}

// Put writes to a .part file and renames it into place once the copy
// finished under the cap, so a blob is either complete or absent.
func (s *DiskStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	path := s.path(id)
	tmp := path + ".part"

	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}

	// One byte past the cap is enough to tell the stream exceeded it.
	size, err := io.Copy(dst, io.LimitReader(r, s.maxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	if size > s.maxSize {
		os.Remove(tmp)
		return 0, domain.ErrPayloadTooLarge
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return size, nil
}

func (s *DiskStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return nil
}
