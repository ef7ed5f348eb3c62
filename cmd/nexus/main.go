package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/config"
	dbRedis "github.com/cosmos-nexus/nexus/internal/db/redis"
	"github.com/cosmos-nexus/nexus/internal/domain"
	logpkg "github.com/cosmos-nexus/nexus/internal/logger"
	"github.com/cosmos-nexus/nexus/internal/metrics"
	"github.com/cosmos-nexus/nexus/internal/repository/embcache"
	indexrepo "github.com/cosmos-nexus/nexus/internal/repository/index"
	chiTransport "github.com/cosmos-nexus/nexus/internal/transport/chi"
	"github.com/cosmos-nexus/nexus/internal/transport/gemini"
	openaiEmb "github.com/cosmos-nexus/nexus/internal/transport/openai"
	answeruc "github.com/cosmos-nexus/nexus/internal/usecase/answer"
	healthuc "github.com/cosmos-nexus/nexus/internal/usecase/health"
	searchuc "github.com/cosmos-nexus/nexus/internal/usecase/search"
	"github.com/cosmos-nexus/nexus/internal/version"
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

	logger.Info("Starting nexus API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterIngestMetrics()

	// The model identity must match what ingestion wrote into the index.
	vecCfg := resolveVectorConfig(cfg.Embedding)

	queryEmbedder := buildQueryEmbedder(cfg.Embedding, vecCfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	indexRepo := indexrepo.New(store, indexrepo.Config{
		Name:            cfg.Index.Name,
		Dimensions:      vecCfg.Dimensions,
		Metric:          cfg.Index.Metric,
		Algorithm:       cfg.Index.Algorithm,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})

	// Bootstrap the index and fail fast when the configured model does not
	// match the dimension the index already holds.
	indexDim, err := indexRepo.EnsureIndex(ctx)
	if err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	if indexDim != vecCfg.Dimensions {
		logger.Fatal("Index dimension does not match embedding model",
			zap.Int("index_dimensions", indexDim),
			zap.Int("model_dimensions", vecCfg.Dimensions),
			zap.String("model", vecCfg.Model),
		)
	}
	logger.Info("Vector index ready",
		zap.String("index", cfg.Index.Name),
		zap.Int("dimensions", indexDim),
	)

	searchSvc := searchuc.New(queryEmbedder, indexRepo, searchuc.Config{
		Namespace:   cfg.Index.Namespace,
		DefaultTopK: cfg.Index.DefaultTopK,
		MaxTopK:     cfg.Index.MaxTopK,
		Dimensions:  vecCfg.Dimensions,
	})

	var generator answeruc.Generator
	var generationChecker healthuc.DependencyChecker
	if cfg.Generation.Enabled() {
		gen := gemini.NewGenerator(&gemini.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		generator = gen
		generationChecker = gen
		logger.Info("Answer generation enabled", zap.String("model", cfg.Generation.Model))
	} else {
		logger.Warn("Answer generation disabled, searches answer with the deterministic fallback")
	}

	answerSvc := answeruc.New(generator, answeruc.Config{
		MaxContextBytes: cfg.Generation.MaxContextBytes,
	}, logger)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), generationChecker)

	server := chiTransport.NewServer(searchSvc, answerSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(corsMiddleware())
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// resolveVectorConfig merges the embedding config over the pinned model defaults.
func resolveVectorConfig(emb config.EmbeddingConfig) domain.VectorConfig {
	vc := domain.DefaultVectorConfig()
	if emb.Model != "" {
		vc.Model = emb.Model
	}
	if emb.Dimensions > 0 {
		vc.Dimensions = emb.Dimensions
	}
	vc.QueryInstruction = emb.QueryInstruction
	return vc
}

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildQueryEmbedder(
	emb config.EmbeddingConfig,
	vecCfg domain.VectorConfig,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:      emb.APIKey,
		BaseURL:     emb.BaseURL,
		Model:       vecCfg.Model,
		Dimensions:  vecCfg.Dimensions,
		Provider:    "openai",
		BatchSize:   emb.BatchSize,
		Concurrency: emb.Concurrency,
		Logger:      logger,
	})

	// Cached (cache key is scoped to the model identity)
	var embedder domain.Embedder = embcache.New(base, store, vecCfg.Model, metrics.EmbeddingCacheTotal, logger)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if vecCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, vecCfg.QueryInstruction)
	}

	return embedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.DependencyChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows cross-origin browser calls. The API is public
// read-only search, so every origin is allowed.
func corsMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
