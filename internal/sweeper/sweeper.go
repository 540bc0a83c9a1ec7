// Package sweeper purges expired files in the background. Expiry is already
// enforced on read by the index, so the sweeper only reclaims storage.
package sweeper

import (
	"context"
	"time"

	"github.com/dropcode/dropcode/internal/blob"
	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/internal/index"
	"github.com/dropcode/dropcode/pkg/log"
)

// Sweeper runs a purge pass on a fixed interval.
type Sweeper struct {
	idx      *index.Index
	store    blob.Store
	interval time.Duration
	stopChan chan struct{}
}

// New creates a Sweeper.
func New(idx *index.Index, store blob.Store, interval time.Duration) *Sweeper {
	return &Sweeper{
		idx:      idx,
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background sweep loop. The first pass runs immediately.
func (s *Sweeper) Start() {
	go func() {
		s.Sweep(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stopChan:
				log.Info("Sweeper stopped")
				return
			}
		}
	}()
	log.Infof("Sweeper started, purging every %s", s.interval)
}

// Stop halts the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one purge pass and returns how many files were removed.
//
// Per record the order is: mark expired (the code stops resolving), delete
// the blob, remove the metadata row. A record is only dropped from the index
// once its blob is gone, so a failed delete is retried on the next pass.
// One bad record never aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	due, err := s.idx.Due(time.Now().UTC())
	if err != nil {
		log.Error("Sweep failed to list expired records", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	var removed int
	for _, rec := range due {
		if rec.Status == domain.StatusActive {
			if err := s.idx.MarkExpired(rec.FileID); err != nil {
				log.Errorf("Failed to mark %s expired: %v", rec.FileID, err)
				continue
			}
		}

		if err := s.store.Delete(ctx, rec.FileID); err != nil {
			log.Errorf("Failed to delete blob for %s: %v", rec.FileID, err)
			continue
		}

		if err := s.idx.Remove(rec.FileID); err != nil {
			log.Errorf("Failed to remove record %s: %v", rec.FileID, err)
			continue
		}
		removed++
	}

	log.Infof("Sweep complete, removed %d of %d expired files", removed, len(due))
	return removed
}
