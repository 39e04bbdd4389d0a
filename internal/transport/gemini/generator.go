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

// Generator produces grounded answers via the Gemini API.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGenerator creates a Gemini generation provider.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
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

	return &Generator{
		client:      client,
		model:       cfg.Model,
		temperature: 0.2,
		logger:      logger,
	}, nil
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (domain.GenerationResult, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("generation response has no text")
	}

	metrics.GenerationRequestsTotal.WithLabelValues(providerName, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(providerName, g.model).Observe(duration.Seconds())

	result := domain.GenerationResult{Text: text}
	if resp.UsageMetadata != nil {
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	g.logger.Debug("generation completed",
		zap.String("model", g.model),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("duration", duration),
	)
	return result, nil
}
