package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/config"
	dbRedis "github.com/datakita/pdpserve/internal/db/redis"
	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/index"
	logpkg "github.com/datakita/pdpserve/internal/logger"
	"github.com/datakita/pdpserve/internal/metrics"
	"github.com/datakita/pdpserve/internal/retry"
	"github.com/datakita/pdpserve/internal/tools"
	geminiProv "github.com/datakita/pdpserve/internal/transport/gemini"
	openaiProv "github.com/datakita/pdpserve/internal/transport/openai"
	"github.com/datakita/pdpserve/internal/usecase/answer"
	embeddinguc "github.com/datakita/pdpserve/internal/usecase/embedding"
	"github.com/datakita/pdpserve/internal/usecase/retrieve"
	"github.com/datakita/pdpserve/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pdpserve MCP server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterToolMetrics()

	policy := retryPolicy(cfg.Retry)

	embedder, err := buildEmbedder(ctx, cfg, store, policy, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}
	logger.Info("Generator created",
		zap.String("provider", cfg.Generation.Provider),
		zap.String("model", cfg.Generation.Model),
	)

	idx := index.New(store, cfg.Index.KeyPrefix, cfg.Embedding.Dimensions, logger).
		WithHNSW(index.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})

	retriever := retrieve.New(embedder, idx, cfg.Retrieval.TopK, cfg.Retrieval.Threshold, logger)
	synth := answer.New(generator, policy, logger)
	router := tools.NewRouter(retriever, synth, time.Duration(cfg.Request.TimeoutSec)*time.Second, logger)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "pdpserve",
		Version: version.Version,
	}, nil)
	tools.RegisterMCP(srv, router)

	// stdio is the MCP transport; the admin listener is a sidecar for
	// health and metrics scraping only.
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var admin *http.Server
	if cfg.Admin.Port > 0 {
		admin = newAdminServer(cfg.Admin.Port, store, embedder, logger)
		go func() {
			logger.Info("Starting admin listener", zap.String("addr", admin.Addr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin listener error", zap.Error(err))
			}
		}()
	}

	logger.Info("Serving MCP on stdio")
	if err := srv.Run(runCtx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server error", zap.Error(err))
	}

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Admin.ShutdownSec)*time.Second)
		defer cancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during admin shutdown", zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		Attempts:  cfg.Attempts,
		BaseDelay: time.Duration(cfg.BaseDelayMS) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.MaxDelaySec) * time.Second,
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Batcher.
func buildEmbedder(
	ctx context.Context,
	cfg config.Config,
	store *dbRedis.Store,
	policy retry.Policy,
	logger *zap.Logger,
) (domain.Embedder, error) {
	provCfg := cfg.Providers[cfg.Embedding.Provider]

	var base domain.Embedder
	switch cfg.Embedding.Provider {
	case "gemini":
		emb, err := geminiProv.NewEmbedder(ctx, &geminiProv.Config{
			APIKey:     provCfg.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		base = emb
	case "openai":
		base = openaiProv.NewEmbedder(&openaiProv.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	embedder := base
	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		embedder = embeddinguc.NewCached(base, store, cfg.Index.KeyPrefix, ttl, logger)
	}

	return embeddinguc.NewBatcher(embedder, cfg.Embedding.BatchSize, policy, logger), nil
}

func buildGenerator(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Generator, error) {
	provCfg := cfg.Providers[cfg.Generation.Provider]

	switch cfg.Generation.Provider {
	case "gemini":
		return geminiProv.NewGenerator(ctx, &geminiProv.Config{
			APIKey: provCfg.APIKey,
			Model:  cfg.Generation.Model,
			Logger: logger,
		})
	case "openai":
		return openaiProv.NewGenerator(&openaiProv.Config{
			APIKey:  provCfg.APIKey,
			BaseURL: provCfg.BaseURL,
			Model:   cfg.Generation.Model,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
	}
}

func newAdminServer(port int, store *dbRedis.Store, embedder domain.Embedder, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
		if hc, ok := embedder.(domain.HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				logger.Warn("Readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("embedding provider unavailable"))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}
}
