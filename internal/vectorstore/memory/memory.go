package memory

import (
	"errors"
	"math"
	"sort"
	"sync"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/vectorstore"
)

// Storage is an in-memory review store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	norms     []float64
	entries   []vectorstore.Entry
}

func NewStorage() *Storage { return &Storage{} }

var _ vectorstore.Storage = (*Storage)(nil)

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.norms = nil
	s.entries = nil
	return nil
}

func (s *Storage) Upsert(entries []vectorstore.Entry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("storage not initialized")
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for i, v := range vectors {
		s.vectors = append(s.vectors, v)
		s.norms = append(s.norms, norm(v))
		s.entries = append(s.entries, entries[i])
	}
	return nil
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.FeedbackResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return []domain.FeedbackResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	qn := norm(vector)
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = similarity(s.vectors[i], vector, s.norms[i], qn)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	// Stable so equal scores keep insertion order.
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.FeedbackResult, 0, topK)
	for _, j := range idxs[:topK] {
		e := s.entries[j]
		md := make(domain.Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		results = append(results, domain.FeedbackResult{Text: e.Text, Similarity: scores[j], Metadata: md})
	}
	return results, nil
}

func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// similarity is the cosine clamped to [0,1]; zero vectors score 0.
func similarity(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return math.Max(0, math.Min(1, sum/(na*nb)))
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
