package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/domain"
)

// Index is the slice of the vector index the ingestion run needs.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float32, version string) error
	PurgeExcept(ctx context.Context, keep string) (int, error)
	Count(ctx context.Context) (int, error)
}

// Report summarizes one ingestion run.
type Report struct {
	RunID     string
	Version   string
	Passages  int
	Removed   int
	IndexSize int
	Duration  time.Duration
}

// Service loads a parsed corpus into the vector index: embed in
// batches, upsert by passage id, then purge passages from older corpus
// versions. Because upserts are idempotent and keyed by stable ids,
// a run may overlap live query traffic.
type Service struct {
	index     Index
	embedder  domain.Embedder
	batchSize int
	logger    *zap.Logger
}

// NewService creates an ingestion service.
func NewService(index Index, embedder domain.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:     index,
		embedder:  embedder,
		batchSize: 100,
		logger:    logger,
	}
}

// WithBatchSize overrides the embedding/upsert batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Run ingests the corpus. The corpus version is a digest of the passage
// ids and texts, so re-running with identical input writes identical
// records and purges nothing.
func (s *Service) Run(ctx context.Context, passages []domain.Passage) (Report, error) {
	start := time.Now()
	report := Report{
		RunID:    uuid.NewString(),
		Passages: len(passages),
	}

	if len(passages) == 0 {
		return report, fmt.Errorf("%w: corpus has no passages", domain.ErrMalformedSource)
	}
	for _, p := range passages {
		if err := p.Validate(); err != nil {
			return report, fmt.Errorf("%w: passage %s: %w", domain.ErrMalformedSource, p.ID, err)
		}
	}

	report.Version = CorpusVersion(passages)
	log := s.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("version", report.Version),
	)
	log.Info("ingestion started", zap.Int("passages", len(passages)))

	if err := s.index.EnsureIndex(ctx); err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}

	for offset := 0; offset < len(passages); offset += s.batchSize {
		end := min(offset+s.batchSize, len(passages))
		batch := passages[offset:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}

		results, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embed batch at %d: %w", offset, err)
		}

		vectors := make([][]float32, len(results))
		for i, r := range results {
			vectors[i] = r.Embedding
		}

		if err := s.index.Upsert(ctx, batch, vectors, report.Version); err != nil {
			return report, fmt.Errorf("upsert batch at %d: %w", offset, err)
		}
		log.Debug("batch ingested", zap.Int("offset", offset), zap.Int("size", len(batch)))
	}

	removed, err := s.index.PurgeExcept(ctx, report.Version)
	if err != nil {
		return report, fmt.Errorf("purge stale passages: %w", err)
	}
	report.Removed = removed

	count, err := s.index.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("count passages: %w", err)
	}
	report.IndexSize = count
	report.Duration = time.Since(start)

	log.Info("ingestion finished",
		zap.Int("indexed", report.Passages),
		zap.Int("removed", report.Removed),
		zap.Int("index_size", report.IndexSize),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// CorpusVersion derives a stable version id from passage ids and texts.
// Identical input always yields the same version.
func CorpusVersion(passages []domain.Passage) string {
	h := sha256.New()
	for _, p := range passages {
		h.Write([]byte(p.ID))
		h.Write([]byte{0})
		h.Write([]byte(p.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
