package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/metrics"
)

const providerName = "gemini"

// maxEmbedChars caps input length per text; the embedding API rejects
// longer inputs.
const maxEmbedChars = 10000

// Embedder is an embedding provider backed by the Gemini API. Corpus
// passages and queries use distinct task types, which improves
// retrieval quality over a single shared embedding space.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// Config holds the provider settings shared by the embedder and generator.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// EmbedDocuments implements domain.Embedder for corpus passages.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery implements domain.Embedder for search queries.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	results, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return results[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([]domain.EmbeddingResult, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(truncate(text), genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{TaskType: taskType}
	if e.dimensions > 0 {
		dim := int32(e.dimensions)
		config.OutputDimensionality = &dim
	}

	start := time.Now()
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	out := make([]domain.EmbeddingResult, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = domain.EmbeddingResult{Embedding: emb.Values}
	}
	return out, nil
}

// HealthCheck probes the API with a minimal embedding request.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.embed(ctx, []string{"ping"}, "RETRIEVAL_QUERY"); err != nil {
		return fmt.Errorf("gemini health check: %w", err)
	}
	return nil
}

func truncate(text string) string {
	if len(text) > maxEmbedChars {
		return text[:maxEmbedChars]
	}
	return text
}
