package vectorstore

import "feedbackexplorer/internal/domain"

// Entry is one stored review and its metadata.
type Entry struct {
	Text     string
	Metadata domain.Metadata
}

// Storage persists review vectors and supports similarity search.
type Storage interface {
	// Init drops every entry and fixes the vector dimension.
	Init(dimension int) error
	Upsert(entries []Entry, vectors [][]float64) error
	// Search returns at most topK entries, most similar first, with
	// similarity in [0,1].
	Search(vector []float64, topK int) ([]domain.FeedbackResult, error)
	Count() int
	Dimension() int
}
