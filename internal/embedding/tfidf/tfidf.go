package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"feedbackexplorer/internal/embedding"
	"feedbackexplorer/internal/textutil"
)

// ErrNotFitted is returned when embedding before any corpus has been seen.
var ErrNotFitted = errors.New("tfidf embedder not fitted")

// Embedder is a TF-IDF vectorizer over review texts. Term frequency is
// sublinear so a rant repeating one word does not drown everything else.
type Embedder struct {
	mu         sync.RWMutex
	maxTerms   int
	vocabulary map[string]int
	idf        []float64
}

// NewEmbedder creates an unfitted embedder. maxTerms caps the vocabulary to
// the terms with the highest document frequency; zero keeps every term.
func NewEmbedder(maxTerms int) *Embedder {
	return &Embedder{maxTerms: maxTerms}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Refit returns a new embedder with the same term cap fitted on corpus.
func (e *Embedder) Refit(corpus []string) (embedding.Embedder, error) {
	next := NewEmbedder(e.maxTerms)
	if err := next.Fit(corpus); err != nil {
		return nil, err
	}
	return next, nil
}

// Fit rebuilds the vocabulary and IDF weights from corpus.
func (e *Embedder) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF fit")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range textutil.Tokens(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	// Most frequent first, ties alphabetical, so the cap is deterministic.
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if e.maxTerms > 0 && len(terms) > e.maxTerms {
		terms = terms[:e.maxTerms]
	}
	sort.Strings(terms)

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	e.mu.Lock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.mu.Unlock()
	return nil
}

// Dimension returns the vocabulary size of the last fit.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed computes the L2-normalized TF-IDF vector of text. Text sharing no
// term with the vocabulary yields the zero vector.
func (e *Embedder) Embed(text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vocabulary == nil {
		return nil, ErrNotFitted
	}
	vec := make([]float64, len(e.idf))
	counts := make(map[int]int)
	for _, tok := range textutil.Tokens(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return vec, nil
	}
	norm := 0.0
	for idx, c := range counts {
		w := (1 + math.Log(float64(c))) * e.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}

// EmbedBatch embeds texts in order, stopping early when ctx is done.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
