package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/domain"
)

// embedder is the query-side slice of domain.Embedder (ISP).
type embedder interface {
	EmbedQuery(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// index is the read-side slice of the vector index client.
type index interface {
	Query(ctx context.Context, vector []float32, k int, f domain.Filter) ([]domain.Hit, error)
}

// Service retrieves the passages most similar to a query. Results
// below the similarity threshold are dropped rather than padded with
// low-relevance matches; callers must handle an empty result.
type Service struct {
	embedder  embedder
	index     index
	topK      int
	threshold float64
	logger    *zap.Logger
}

// New creates a retriever with the given defaults.
func New(embedder embedder, index index, topK int, threshold float64, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder:  embedder,
		index:     index,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve embeds the query text and returns the top-K most similar
// passages that pass the query's filter, ranked by descending score
// with ties broken by passage id. A query TopK of zero uses the
// configured default.
func (s *Service) Retrieve(ctx context.Context, q domain.Query) ([]domain.Hit, error) {
	k := q.TopK
	if k <= 0 {
		k = s.topK
	}

	result, err := s.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, result.Embedding, k, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	kept := hits[:0]
	for _, hit := range hits {
		if hit.Score >= s.threshold {
			kept = append(kept, hit)
		}
	}

	s.logger.Debug("retrieval completed",
		zap.String("tool", string(q.Tool)),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(kept)),
	)
	return kept, nil
}
