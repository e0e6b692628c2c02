package embedding

import "context"

// Embedder converts review texts into numeric vectors.
type Embedder interface {
	Name() string
	// Dimension is zero until the first vectors have been produced.
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// CorpusFitter is implemented by embedders whose vector space is derived from
// the whole corpus. After each ingest every stored entry is embedded again
// with a refit copy; the receiver keeps its current fit.
type CorpusFitter interface {
	Refit(corpus []string) (Embedder, error)
}
