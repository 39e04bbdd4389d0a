package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/retry"
)

// Batcher splits document embedding into provider-sized batches and
// retries transient failures with bounded exponential backoff. Once a
// batch exhausts its retries the whole call fails with
// ErrEmbeddingUnavailable; partial results are discarded.
type Batcher struct {
	inner     domain.Embedder
	batchSize int
	policy    retry.Policy
	logger    *zap.Logger
}

// NewBatcher wraps a provider embedder.
func NewBatcher(inner domain.Embedder, batchSize int, policy retry.Policy, logger *zap.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		inner:     inner,
		batchSize: batchSize,
		policy:    policy,
		logger:    logger,
	}
}

// EmbedDocuments implements domain.Embedder. Order-preserving across
// batch boundaries: result i always corresponds to texts[i].
func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]domain.EmbeddingResult, 0, len(texts))
	for offset := 0; offset < len(texts); offset += b.batchSize {
		end := min(offset+b.batchSize, len(texts))
		batch := texts[offset:end]

		var results []domain.EmbeddingResult
		err := retry.Do(ctx, b.policy, func(ctx context.Context) error {
			var innerErr error
			results, innerErr = b.inner.EmbedDocuments(ctx, batch)
			return innerErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: batch at %d: %w", domain.ErrEmbeddingUnavailable, offset, err)
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("%w: batch at %d returned %d vectors for %d inputs",
				domain.ErrEmbeddingUnavailable, offset, len(results), len(batch))
		}
		out = append(out, results...)
	}
	return out, nil
}

// EmbedQuery implements domain.Embedder with the same retry policy.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var result domain.EmbeddingResult
	err := retry.Do(ctx, b.policy, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = b.inner.EmbedQuery(ctx, text)
		return innerErr
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return result, nil
}

// HealthCheck forwards to the wrapped provider when it supports probing.
func (b *Batcher) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
