package backend

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbackexplorer/internal/embedding/tfidf"
	"feedbackexplorer/internal/vectorstore/memory"
)

func seededIndex(t *testing.T) *Index {
	t.Helper()
	entries, err := ReadFeedback(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	index := NewIndex(tfidf.NewEmbedder(0), memory.NewStorage(), zap.NewNop())
	n, err := index.Ingest(context.Background(), entries, 2)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return index
}

func TestFailedIngestKeepsIndexSearchable(t *testing.T) {
	index := seededIndex(t)
	before := index.Stats()

	more, err := ReadFeedback(strings.NewReader("reviewText,overall\n" +
		"Keyboard keys stick after rain.,2\n"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = index.Ingest(ctx, more, 2)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, before, index.Stats())
	results, err := index.Search(context.Background(), "battery", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, strings.ToLower(r.Text), "battery")
	}
}

func TestIngestAfterFailureRefitsEverything(t *testing.T) {
	index := seededIndex(t)
	more, err := ReadFeedback(strings.NewReader("reviewText\nKeyboard keys stick after rain.\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = index.Ingest(ctx, more, 2)
	require.Error(t, err)

	n, err := index.Ingest(context.Background(), more, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, index.Stats()["total_entries"])

	results, err := index.Search(context.Background(), "keyboard", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "Keyboard")
}
