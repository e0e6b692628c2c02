package service

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbackexplorer/internal/backend"
	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/embedding/tfidf"
	"feedbackexplorer/internal/gateway"
	"feedbackexplorer/internal/session"
	"feedbackexplorer/internal/summarizer"
	"feedbackexplorer/internal/vectorstore/memory"
)

const reviews = "reviewText,overall,helpful\n" +
	"Battery lasts two days on a charge.,5,\"[4, 5]\"\n" +
	"The battery swelled after a month.,1,\"[2, 2]\"\n" +
	"Great screen but loud fan.,3,\"[0, 1]\"\n"

func newExplorer(t *testing.T) *Explorer {
	t.Helper()
	index := backend.NewIndex(tfidf.NewEmbedder(0), memory.NewStorage(), zap.NewNop())
	srv := httptest.NewServer(backend.NewServer(index, summarizer.NewFrequencySummarizer(2), zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	client := gateway.NewClient(gateway.Config{BaseURL: srv.URL + "/api"})
	return NewExplorer(client, Options{BatchSize: 2, TopK: 2, GenerateSummary: true}, zap.NewNop())
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExplorerEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newExplorer(t)
	require.NoError(t, e.Start(ctx))
	assert.False(t, e.DataLoaded())

	_, err := e.Ask(ctx, "battery?")
	assert.ErrorIs(t, err, session.ErrDataNotLoaded)
	assert.Zero(t, e.Session.Len())

	job, err := e.Upload(ctx, writeCSV(t, "reviews.csv", reviews), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadSucceeded, job.State)
	assert.Equal(t, 2, job.BatchSize)
	assert.Equal(t, "Success! Successfully processed 3 feedback entries", job.Message)
	require.NotNil(t, job.Stats)
	assert.Equal(t, 3, job.Stats.Processed)
	assert.True(t, e.DataLoaded())
	assert.Equal(t, 3, e.Tracker.Stats().TotalEntries)

	turn, err := e.Ask(ctx, "How is the battery?")
	require.NoError(t, err)
	assert.Equal(t, domain.TurnAssistant, turn.Kind)
	assert.Contains(t, turn.Text, "Across 2 reviews:")
	require.Len(t, turn.Sources, 2)
	assert.Len(t, turn.Preview(), domain.PreviewSize)
	assert.Equal(t, 2, e.Session.Len())
	assert.Len(t, e.Session.Results().Results, 2)
}

func TestExplorerUploadRejectsNonCSV(t *testing.T) {
	e := newExplorer(t)
	require.NoError(t, e.Start(context.Background()))

	_, err := e.Upload(context.Background(), writeCSV(t, "reviews.json", reviews), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidFileType)
	assert.False(t, e.DataLoaded())
}

func TestExplorerUploadServerRejection(t *testing.T) {
	e := newExplorer(t)
	require.NoError(t, e.Start(context.Background()))

	job, err := e.Upload(context.Background(), writeCSV(t, "bad.csv", "text\nhello\n"), 8)
	require.Error(t, err)
	assert.Equal(t, domain.UploadFailed, job.State)
	assert.Equal(t, 8, job.BatchSize)
	assert.Equal(t, "Missing required columns: reviewText", job.Message)
	assert.False(t, e.DataLoaded())
}

func TestExplorerStartUnavailable(t *testing.T) {
	srv := httptest.NewServer(nil)
	base := srv.URL
	srv.Close()

	e := NewExplorer(gateway.NewClient(gateway.Config{BaseURL: base}), Options{}, nil)
	err := e.Start(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}
