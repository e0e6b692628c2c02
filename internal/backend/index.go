package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/embedding"
	"feedbackexplorer/internal/vectorstore"
)

// DefaultBatchSize is used when an ingest request names none.
const DefaultBatchSize = 32

// Index owns the review corpus, its embedder and the vector store. Ingests
// are serialized; searches run concurrently with each other.
type Index struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	store    vectorstore.Storage
	corpus   []vectorstore.Entry
	logger   *zap.Logger
}

// NewIndex creates an empty index.
func NewIndex(embedder embedding.Embedder, store vectorstore.Storage, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{embedder: embedder, store: store, logger: logger.Named("index")}
}

// Ingest embeds entries in batches of batchSize and adds them to the store.
// Vectors are computed before the store is touched, so a failed ingest leaves
// the previous contents searchable.
func (ix *Index) Ingest(ctx context.Context, entries []vectorstore.Entry, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(entries) == 0 {
		return 0, nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.logger.Info("starting ingest",
		zap.Int("entries", len(entries)),
		zap.Int("batch_size", batchSize),
		zap.String("embedder", ix.embedder.Name()))

	// Corpus-fitted embedders change the vector space on every ingest, so the
	// whole corpus is embedded again with a refit copy. The live embedder is
	// swapped only once the store holds vectors from the copy.
	embedder := ix.embedder
	toEmbed := entries
	reset := ix.store.Count() == 0
	if fitter, ok := ix.embedder.(embedding.CorpusFitter); ok {
		toEmbed = make([]vectorstore.Entry, 0, len(ix.corpus)+len(entries))
		toEmbed = append(toEmbed, ix.corpus...)
		toEmbed = append(toEmbed, entries...)
		texts := make([]string, len(toEmbed))
		for i, e := range toEmbed {
			texts[i] = e.Text
		}
		refit, err := fitter.Refit(texts)
		if err != nil {
			return 0, fmt.Errorf("fit embedder: %w", err)
		}
		embedder = refit
		reset = true
	}

	vectors := make([][]float64, 0, len(toEmbed))
	for start := 0; start < len(toEmbed); start += batchSize {
		end := min(start+batchSize, len(toEmbed))
		texts := make([]string, 0, end-start)
		for _, e := range toEmbed[start:end] {
			texts = append(texts, e.Text)
		}
		batch, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
		ix.logger.Debug("embedded batch", zap.Int("done", end), zap.Int("of", len(toEmbed)))
	}

	if reset {
		dim := embedder.Dimension()
		if dim == 0 && len(vectors) > 0 {
			dim = len(vectors[0])
		}
		if err := ix.store.Init(dim); err != nil {
			return 0, fmt.Errorf("init store: %w", err)
		}
	}
	if err := ix.store.Upsert(toEmbed, vectors); err != nil {
		return 0, fmt.Errorf("store vectors: %w", err)
	}
	ix.embedder = embedder
	ix.corpus = append(ix.corpus, entries...)
	ix.logger.Info("ingest finished", zap.Int("processed", len(entries)), zap.Int("total", len(ix.corpus)))
	return len(entries), nil
}

// Search returns the topK reviews most similar to query.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]domain.FeedbackResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.store.Count() == 0 {
		return []domain.FeedbackResult{}, nil
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, errors.New("embed query: no vector returned")
	}
	return ix.store.Search(vecs[0], topK)
}

// Stats reports the store size in the shape the status endpoint returns.
func (ix *Index) Stats() map[string]any {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return map[string]any{
		"total_entries": ix.store.Count(),
		"dimension":     ix.store.Dimension(),
		"embedder":      ix.embedder.Name(),
	}
}
