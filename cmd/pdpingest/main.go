// Command pdpingest builds and loads the UU PDP knowledge base.
//
// Two subcommands mirror the offline pipeline:
//
//	pdpingest extract -pdf uu27-2022.pdf -out knowledge.json
//	pdpingest ingest -kb knowledge.json
//
// extract runs without any backing services; ingest needs the database
// and the embedding provider from the active config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/datakita/pdpserve/internal/config"
	dbRedis "github.com/datakita/pdpserve/internal/db/redis"
	"github.com/datakita/pdpserve/internal/domain"
	"github.com/datakita/pdpserve/internal/index"
	"github.com/datakita/pdpserve/internal/ingest"
	logpkg "github.com/datakita/pdpserve/internal/logger"
	"github.com/datakita/pdpserve/internal/retry"
	geminiProv "github.com/datakita/pdpserve/internal/transport/gemini"
	openaiProv "github.com/datakita/pdpserve/internal/transport/openai"
	embeddinguc "github.com/datakita/pdpserve/internal/usecase/embedding"
	"github.com/datakita/pdpserve/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	env := config.GetEnv()
	logger, err := logpkg.NewLogger(env)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	switch os.Args[1] {
	case "extract":
		err = runExtract(os.Args[2:], logger)
	case "ingest":
		err = runIngest(os.Args[2:], env, logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "pdpingest %s\n\nusage:\n  pdpingest extract -pdf <file> -out <file>\n  pdpingest ingest -kb <file>\n", version.Version)
}

// runExtract parses the statute PDF into the JSON knowledge base.
func runExtract(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	pdfPath := fs.String("pdf", "", "path to the UU PDP statute PDF")
	outPath := fs.String("out", "knowledge.json", "output knowledge base path")
	_ = fs.Parse(args)

	if *pdfPath == "" {
		return fmt.Errorf("-pdf is required")
	}

	text, err := ingest.ExtractPDF(*pdfPath)
	if err != nil {
		return err
	}
	logger.Info("Extracted statute text", zap.String("pdf", *pdfPath), zap.Int("chars", len(text)))

	passages, err := ingest.DefaultParser().Parse(text)
	if err != nil {
		return err
	}

	kb := ingest.NewKnowledgeBase(*pdfPath, passages)
	if err := kb.WriteFile(*outPath); err != nil {
		return err
	}

	logger.Info("Knowledge base written",
		zap.String("out", *outPath),
		zap.Int("pasal", kb.Metadata.TotalPasal),
		zap.Int("definisi", kb.Metadata.TotalDefinisi),
	)
	return nil
}

// runIngest embeds the knowledge base and loads it into the vector index.
func runIngest(args []string, env string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	kbPath := fs.String("kb", "knowledge.json", "knowledge base path")
	_ = fs.Parse(args)

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	kb, err := ingest.LoadKnowledgeBase(*kbPath)
	if err != nil {
		return err
	}
	passages := kb.Passages()
	logger.Info("Knowledge base loaded", zap.String("path", *kbPath), zap.Int("passages", len(passages)))

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	provider, err := buildEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	policy := retry.Policy{
		Attempts:  cfg.Retry.Attempts,
		BaseDelay: time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.Retry.MaxDelaySec) * time.Second,
	}
	embedder := embeddinguc.NewBatcher(provider, cfg.Embedding.BatchSize, policy, logger)

	idx := index.New(store, cfg.Index.KeyPrefix, cfg.Embedding.Dimensions, logger).
		WithHNSW(index.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})

	svc := ingest.NewService(idx, embedder, logger).WithBatchSize(cfg.Embedding.BatchSize)
	report, err := svc.Run(ctx, passages)
	if err != nil {
		return err
	}

	logger.Info("Ingestion completed",
		zap.String("run_id", report.RunID),
		zap.String("version", report.Version),
		zap.Int("passages", report.Passages),
		zap.Int("removed", report.Removed),
		zap.Int("index_size", report.IndexSize),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

// buildEmbedder creates the raw provider for the write path. The query
// cache is not needed for document embedding, so only the retrying
// batcher wraps it.
func buildEmbedder(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Embedder, error) {
	provCfg := cfg.Providers[cfg.Embedding.Provider]

	switch cfg.Embedding.Provider {
	case "gemini":
		return geminiProv.NewEmbedder(ctx, &geminiProv.Config{
			APIKey:     provCfg.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
	case "openai":
		return openaiProv.NewEmbedder(&openaiProv.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
