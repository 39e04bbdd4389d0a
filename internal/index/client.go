// Package index is the vector index client: it owns passage storage and
// filtered top-K similarity queries against the external Redis query engine.
package index

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/db"
	"github.com/datakita/pdpserve/internal/domain"
)

// store is the consumer interface for index operations.
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig carries index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Client reads and writes passages in the vector index.
type Client struct {
	store  store
	prefix string
	dim    int
	hnsw   HNSWConfig
	logger *zap.Logger
}

// New creates an index client. prefix namespaces all keys, e.g. "pdp:".
func New(s store, prefix string, dim int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		store:  s,
		prefix: prefix,
		dim:    dim,
		hnsw:   HNSWConfig{M: 32, EFConstruct: 400},
		logger: logger,
	}
}

// WithHNSW overrides the HNSW build parameters.
func (c *Client) WithHNSW(cfg HNSWConfig) *Client {
	if cfg.M > 0 {
		c.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		c.hnsw.EFConstruct = cfg.EFConstruct
	}
	return c
}

func (c *Client) keyPrefix() string { return c.prefix + "passages:" }
func (c *Client) indexName() string { return c.prefix + "passages:idx" }
func (c *Client) key(id string) string {
	return c.keyPrefix() + id
}

// EnsureIndex creates the FT index if it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	exists, err := c.store.IndexExists(ctx, c.indexName())
	if err != nil {
		return fmt.Errorf("probe index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(c.indexName()).
		Prefix(c.keyPrefix()).
		Tag(fieldKind).
		Tag(fieldBab).
		TagWithSeparator(fieldTopic, ",").
		Tag(fieldIstilah).
		Tag(fieldVersion).
		Numeric(fieldPasal).
		VectorHNSW(fieldVector, c.dim, db.DistanceCosine, c.hnsw.M, c.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := c.store.CreateIndex(ctx, def); err != nil {
		if err == db.ErrIndexExists {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", domain.ErrIndexUnavailable, err)
	}

	c.logger.Info("Vector index created",
		zap.String("index", c.indexName()),
		zap.Int("dimensions", c.dim),
	)
	return nil
}

// Upsert writes passages and their vectors, keyed by passage id.
// Re-upserting an id replaces its vector and metadata, which makes
// ingestion idempotent and safe to run concurrently with queries.
func (c *Client) Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float32, version string) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("passage/vector count mismatch: %d vs %d", len(passages), len(vectors))
	}

	items := make([]db.HashSetItem, 0, len(passages))
	for i, p := range passages {
		if err := p.Validate(); err != nil {
			return err
		}
		if len(vectors[i]) != c.dim {
			return fmt.Errorf("passage %s: vector dimension %d, want %d", p.ID, len(vectors[i]), c.dim)
		}
		items = append(items, db.HashSetItem{
			Key:    c.key(p.ID),
			Fields: buildHashFields(p, vectors[i], version),
		})
	}

	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert passages: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query runs a filtered top-K similarity search and returns ranked hits.
func (c *Client) Query(ctx context.Context, vector []float32, k int, f domain.Filter) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	q := &db.KNNQuery{
		IndexName:    c.indexName(),
		Terms:        filterTerms(f),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	}

	sr, err := c.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, c.keyPrefix())
		hits = append(hits, domain.Hit{
			Passage: parseHashFields(id, entry.Fields),
			Score:   entry.Score,
		})
	}
	domain.RankHits(hits)
	return hits, nil
}

// Count returns the number of passages in the index.
func (c *Client) Count(ctx context.Context) (int, error) {
	n, err := c.store.SearchCount(ctx, c.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count passages: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// PurgeExcept removes passages whose version differs from keep, completing
// a corpus-version replacement after re-ingestion. Returns the number of
// removed passages.
func (c *Client) PurgeExcept(ctx context.Context, keep string) (int, error) {
	keys, err := c.store.Scan(ctx, c.keyPrefix()+"*")
	if err != nil {
		return 0, fmt.Errorf("scan passages: %w: %w", domain.ErrIndexUnavailable, err)
	}

	var stale []string
	for _, key := range keys {
		fields, err := c.store.HGetAll(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("read passage %s: %w: %w", key, domain.ErrIndexUnavailable, err)
		}
		if fields[fieldVersion] != keep {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := c.store.Del(ctx, stale...); err != nil {
		return 0, fmt.Errorf("delete stale passages: %w: %w", domain.ErrIndexUnavailable, err)
	}
	c.logger.Info("Purged stale corpus versions",
		zap.Int("removed", len(stale)),
		zap.String("kept_version", keep),
	)
	return len(stale), nil
}
