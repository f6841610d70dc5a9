package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/config"
	"Luanshi/server/internal/effects"
	"Luanshi/server/internal/engine"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/rag"
	"Luanshi/server/internal/storage"
	"Luanshi/server/internal/web"
	"Luanshi/server/internal/world"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	sim := world.NewSimulator(cat, cfg.Engine.World, logger)
	ledger := bond.NewLedger(cfg.Engine.Bond)
	classifier := intent.NewClassifier(cfg.Engine.Intent, cat, sim, ledger, logger)
	applier := effects.NewApplier(cfg.Engine.Effects, cat, ledger, logger)

	// Initialize storage
	store, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.AI.GLM5.APIKey == "" {
		logger.Warn("no narrative API key configured; turns will fail until one is set")
	}
	backend := engine.NewGLMBackend(engine.BackendConfig{
		BaseURL:     cfg.AI.GLM5.BaseURL,
		APIKey:      cfg.AI.GLM5.APIKey,
		Model:       cfg.AI.GLM5.Model,
		Temperature: float32(cfg.AI.GLM5.Temperature),
		MaxTokens:   cfg.AI.GLM5.MaxTokens,
		Timeout:     cfg.AI.GLM5.Timeout,
	})

	var archive engine.Archive
	if cfg.Memory.Enabled {
		memories, err := newMemoryStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer memories.Close()
		archive = memories
	}

	hub := web.NewTurnHub(logger)
	go hub.Run(ctx)

	eng, err := engine.New(engine.Options{
		Catalog:     cat,
		Simulator:   sim,
		Classifier:  classifier,
		Applier:     applier,
		Backend:     backend,
		Store:       store,
		Archive:     archive,
		Publisher:   hub,
		Logger:      logger,
		RecallLimit: cfg.Memory.RecallLimit,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: web.NewRouter(web.Options{
			Game:        eng,
			Slots:       store,
			Hub:         hub,
			Logger:      logger,
			TurnTimeout: cfg.Server.TurnTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "storage", cfg.Storage.Driver, "memory", cfg.Memory.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newMemoryStore uses Qdrant and the remote embedder when a Qdrant host is
// configured, and an in-process index with hashed embeddings otherwise.
func newMemoryStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rag.MemoryStore, error) {
	q := cfg.Database.Qdrant
	if q.Host == "" {
		logger.Info("memory recall using in-process index")
		return rag.NewMemoryStore(ctx, rag.NewMemoryIndex(), rag.HashEmbedder{Dim: q.VectorSize}, q.Collection, q.VectorSize)
	}

	port := q.Port
	if port == 0 {
		port = 6334
	}
	client, err := rag.NewQdrantClient(q.Host, port, q.APIKey)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	apiKey := cfg.AI.Embedding.APIKey
	if apiKey == "" {
		apiKey = cfg.AI.GLM5.APIKey
	}
	embedder := rag.NewEmbeddingService(cfg.AI.GLM5.BaseURL, apiKey, cfg.AI.Embedding.Model)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := rag.NewMemoryStore(initCtx, client, embedder, q.Collection, q.VectorSize)
	if err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("memory recall using qdrant", "host", q.Host, "port", port, "collection", q.Collection)
	return store, nil
}
