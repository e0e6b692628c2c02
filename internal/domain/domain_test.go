package domain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataLoaded(t *testing.T) {
	assert.False(t, DataLoaded(VectorStoreStats{}))
	assert.False(t, DataLoaded(VectorStoreStats{TotalEntries: 0, Dimension: 12}))
	assert.True(t, DataLoaded(VectorStoreStats{TotalEntries: 1}))
	assert.True(t, DataLoaded(VectorStoreStats{TotalEntries: 100}))
}

func TestUploadFileIsCSV(t *testing.T) {
	cases := map[string]bool{
		"reviews.csv":     true,
		"REVIEWS.CSV":     true,
		"data.v2.Csv":     true,
		"reviews.tsv":     false,
		"reviews":         false,
		"csv":             false,
		"reviews.csv.zip": false,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, UploadFile{Name: name}.IsCSV())
		})
	}
}

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte("reviewText\ngood\n"), 0o600))

	f, err := FileFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "reviews.csv", f.Name)
	assert.EqualValues(t, 16, f.Size)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "reviewText\ngood\n", string(data))

	_, err = FileFromPath(dir)
	assert.Error(t, err)
	_, err = FileFromPath(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{
		MetaOverall:      4.0,
		MetaHelpful:      []any{2.0, 3.0},
		MetaReviewerName: "Jane",
		MetaASIN:         "B000123",
		"empty":          "",
	}
	r, ok := m.Rating()
	require.True(t, ok)
	assert.Equal(t, 4.0, r)

	up, total, ok := m.Helpful()
	require.True(t, ok)
	assert.Equal(t, 2, up)
	assert.Equal(t, 3, total)

	name, ok := m.String(MetaReviewerName)
	assert.True(t, ok)
	assert.Equal(t, "Jane", name)

	_, ok = m.String("empty")
	assert.False(t, ok)
	_, ok = m.String("missing")
	assert.False(t, ok)

	overall, ok := m.String(MetaOverall)
	assert.True(t, ok)
	assert.Equal(t, "4", overall)
}

func TestMetadataRatingRejectsOutOfRange(t *testing.T) {
	_, ok := Metadata{MetaOverall: 7.0}.Rating()
	assert.False(t, ok)
	r, ok := Metadata{MetaOverall: "3"}.Rating()
	assert.True(t, ok)
	assert.Equal(t, 3.0, r)
	_, _, ok = Metadata{MetaHelpful: []any{1.0}}.Helpful()
	assert.False(t, ok)
}

func TestMatchPercent(t *testing.T) {
	assert.Equal(t, 87, FeedbackResult{Similarity: 0.87}.MatchPercent())
	assert.Equal(t, 100, FeedbackResult{Similarity: 1.3}.MatchPercent())
	assert.Equal(t, 0, FeedbackResult{Similarity: -0.2}.MatchPercent())
}

func TestQueryRequestNormalize(t *testing.T) {
	q := QueryRequest{QueryText: "  battery life \n"}.Normalize()
	assert.Equal(t, "battery life", q.QueryText)
	assert.Equal(t, DefaultTopK, q.TopK)

	q = QueryRequest{QueryText: "x", TopK: 9}.Normalize()
	assert.Equal(t, 9, q.TopK)
}

func TestTurnPreview(t *testing.T) {
	turn := Turn{Kind: TurnAssistant, Sources: []FeedbackResult{{Text: "a"}, {Text: "b"}, {Text: "c"}}}
	assert.Len(t, turn.Preview(), PreviewSize)
	assert.Equal(t, "a", turn.Preview()[0].Text)

	short := Turn{Kind: TurnAssistant, Sources: []FeedbackResult{{Text: "a"}}}
	assert.Len(t, short.Preview(), 1)
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("refresh: %w", NetworkError("status", "cannot reach server", cause))

	assert.Equal(t, KindNetwork, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot reach server", Detail(err))

	srv := ServerError("ingest", 400, "Only CSV files are supported")
	assert.Equal(t, KindServer, KindOf(srv))
	assert.Equal(t, "ingest: Only CSV files are supported", srv.Error())

	assert.ErrorIs(t, ValidationError("select file", "invalid file type"), ErrInvalidFileType)
	assert.NotErrorIs(t, ErrEmptyQuery, ErrInvalidFileType)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "plain", Detail(errors.New("plain")))
}
