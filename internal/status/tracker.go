// Package status tracks the remote vector store statistics and the derived
// "data is loaded" flag that gates the conversation.
package status

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/observer"
)

// Fetcher is the subset of the API gateway the tracker needs.
type Fetcher interface {
	Status(ctx context.Context) (domain.VectorStoreStats, error)
}

// Availability is a snapshot handed to subscribers.
type Availability struct {
	Stats domain.VectorStoreStats
	// Fetched is false until the first successful refresh.
	Fetched    bool
	DataLoaded bool
}

// Tracker owns the current VectorStoreStats. It is the only writer.
type Tracker struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu      sync.Mutex
	stats   domain.VectorStoreStats
	fetched bool
	// loaded latches once data is known to exist and never resets.
	loaded bool
	// seq numbers refresh requests; applied is the newest one stored.
	seq     uint64
	applied uint64

	observers observer.Set[Availability]
}

// NewTracker creates a tracker with empty stats.
func NewTracker(fetcher Fetcher, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{fetcher: fetcher, logger: logger.Named("status")}
}

// Refresh fetches fresh stats. On success they replace the stored ones
// wholesale; on failure the previous stats are kept and the error returned.
// A response that lands after one from a later request is dropped.
func (t *Tracker) Refresh(ctx context.Context) (domain.VectorStoreStats, error) {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	stats, err := t.fetcher.Status(ctx)
	if err != nil {
		t.logger.Warn("status refresh failed", zap.Error(err))
		return t.Stats(), err
	}

	t.mu.Lock()
	if seq < t.applied {
		current := t.stats
		t.mu.Unlock()
		t.logger.Debug("superseded status response dropped", zap.Uint64("seq", seq))
		return current, nil
	}
	t.applied = seq
	t.stats = stats
	t.fetched = true
	if domain.DataLoaded(stats) {
		t.loaded = true
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Info("status refreshed",
		zap.Int("total_entries", stats.TotalEntries),
		zap.Bool("data_loaded", snap.DataLoaded))
	t.observers.Notify(snap)
	return stats, nil
}

// MarkAvailable records that an ingest reported processed entries, ahead of
// the stats refresh that will confirm it.
func (t *Tracker) MarkAvailable() {
	t.mu.Lock()
	if t.loaded {
		t.mu.Unlock()
		return
	}
	t.loaded = true
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Info("data marked available")
	t.observers.Notify(snap)
}

// Stats returns the last successfully fetched stats.
func (t *Tracker) Stats() domain.VectorStoreStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// DataLoaded reports whether the conversation may start.
func (t *Tracker) DataLoaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Snapshot returns the current availability.
func (t *Tracker) Snapshot() Availability {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Subscribe registers fn for every stats replacement or availability change.
func (t *Tracker) Subscribe(fn func(Availability)) (unsubscribe func()) {
	return t.observers.Subscribe(fn)
}

func (t *Tracker) snapshotLocked() Availability {
	return Availability{Stats: t.stats, Fetched: t.fetched, DataLoaded: t.loaded}
}
