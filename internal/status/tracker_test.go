package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
)

type fakeFetcher struct {
	stats domain.VectorStoreStats
	err   error
	calls int
}

func (f *fakeFetcher) Status(context.Context) (domain.VectorStoreStats, error) {
	f.calls++
	if f.err != nil {
		return domain.VectorStoreStats{}, f.err
	}
	return f.stats, nil
}

func TestRefreshReplacesStats(t *testing.T) {
	f := &fakeFetcher{stats: domain.VectorStoreStats{TotalEntries: 100, Dimension: 8}}
	tr := NewTracker(f, zap.NewNop())
	assert.False(t, tr.DataLoaded())
	assert.False(t, tr.Snapshot().Fetched)

	stats, err := tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, stats.TotalEntries)
	assert.Equal(t, 100, tr.Stats().TotalEntries)
	assert.True(t, tr.DataLoaded())
	assert.True(t, tr.Snapshot().Fetched)

	f.stats = domain.VectorStoreStats{TotalEntries: 120}
	_, err = tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.VectorStoreStats{TotalEntries: 120}, tr.Stats())
}

func TestRefreshEmptyStoreNotLoaded(t *testing.T) {
	tr := NewTracker(&fakeFetcher{}, nil)
	_, err := tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, tr.DataLoaded())
	assert.True(t, tr.Snapshot().Fetched)
}

func TestRefreshFailureKeepsPreviousStats(t *testing.T) {
	f := &fakeFetcher{stats: domain.VectorStoreStats{TotalEntries: 7}}
	tr := NewTracker(f, zap.NewNop())
	_, err := tr.Refresh(context.Background())
	require.NoError(t, err)

	f.err = domain.NetworkError("status", "down", errors.New("dial tcp: refused"))
	stats, err := tr.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	assert.Equal(t, 7, stats.TotalEntries)
	assert.Equal(t, 7, tr.Stats().TotalEntries)
	assert.True(t, tr.DataLoaded())
}

func TestMarkAvailableIsMonotonic(t *testing.T) {
	f := &fakeFetcher{}
	tr := NewTracker(f, zap.NewNop())

	tr.MarkAvailable()
	assert.True(t, tr.DataLoaded())

	// A refresh that reports an empty store cannot revoke availability.
	_, err := tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, tr.DataLoaded())

	f.err = errors.New("boom")
	_, _ = tr.Refresh(context.Background())
	assert.True(t, tr.DataLoaded())
}

func TestSubscribersSeeChanges(t *testing.T) {
	f := &fakeFetcher{stats: domain.VectorStoreStats{TotalEntries: 3}}
	tr := NewTracker(f, zap.NewNop())
	var seen []Availability
	unsub := tr.Subscribe(func(a Availability) { seen = append(seen, a) })

	tr.MarkAvailable()
	tr.MarkAvailable()
	_, _ = tr.Refresh(context.Background())

	require.Len(t, seen, 2)
	assert.True(t, seen[0].DataLoaded)
	assert.False(t, seen[0].Fetched)
	assert.Equal(t, 3, seen[1].Stats.TotalEntries)

	unsub()
	_, _ = tr.Refresh(context.Background())
	assert.Len(t, seen, 2)
}

func TestFailedRefreshDoesNotNotify(t *testing.T) {
	tr := NewTracker(&fakeFetcher{err: errors.New("boom")}, zap.NewNop())
	notified := false
	tr.Subscribe(func(Availability) { notified = true })
	_, err := tr.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, notified)
}

// gatedFetcher hands each call its own channel so the test decides the order
// in which responses land.
type gatedFetcher struct {
	calls chan chan domain.VectorStoreStats
}

func (f *gatedFetcher) Status(context.Context) (domain.VectorStoreStats, error) {
	gate := make(chan domain.VectorStoreStats)
	f.calls <- gate
	return <-gate, nil
}

func TestOutOfOrderRefreshKeepsNewestStats(t *testing.T) {
	f := &gatedFetcher{calls: make(chan chan domain.VectorStoreStats)}
	tr := NewTracker(f, zap.NewNop())
	var notified []int
	tr.Subscribe(func(a Availability) { notified = append(notified, a.Stats.TotalEntries) })

	older := make(chan domain.VectorStoreStats, 1)
	go func() {
		stats, _ := tr.Refresh(context.Background())
		older <- stats
	}()
	first := <-f.calls

	newer := make(chan domain.VectorStoreStats, 1)
	go func() {
		stats, _ := tr.Refresh(context.Background())
		newer <- stats
	}()
	second := <-f.calls

	second <- domain.VectorStoreStats{TotalEntries: 20}
	assert.Equal(t, 20, (<-newer).TotalEntries)

	first <- domain.VectorStoreStats{TotalEntries: 10}
	assert.Equal(t, 20, (<-older).TotalEntries)

	assert.Equal(t, 20, tr.Stats().TotalEntries)
	assert.Equal(t, []int{20}, notified)
}
