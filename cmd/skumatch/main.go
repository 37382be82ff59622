package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skumatch/internal/config"
	"github.com/kailas-cloud/skumatch/internal/db"
	dbRedis "github.com/kailas-cloud/skumatch/internal/db/redis"
	logpkg "github.com/kailas-cloud/skumatch/internal/logger"
	"github.com/kailas-cloud/skumatch/internal/metrics"
	catalogrepo "github.com/kailas-cloud/skumatch/internal/repository/catalog"
	"github.com/kailas-cloud/skumatch/internal/repository/respcache"
	"github.com/kailas-cloud/skumatch/internal/trace"
	chiTransport "github.com/kailas-cloud/skumatch/internal/transport/chi"
	"github.com/kailas-cloud/skumatch/internal/transport/reranker"
	fusionuc "github.com/kailas-cloud/skumatch/internal/usecase/fusion"
	gateuc "github.com/kailas-cloud/skumatch/internal/usecase/gate"
	healthuc "github.com/kailas-cloud/skumatch/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/skumatch/internal/usecase/pipeline"
	retrieveuc "github.com/kailas-cloud/skumatch/internal/usecase/retrieve"
	"github.com/kailas-cloud/skumatch/internal/vectorizer"
	"github.com/kailas-cloud/skumatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting skumatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	keys := db.Keys{Prefix: cfg.Storage.KeyPrefix}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	}, keys)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Dense index over the catalog. An existing index is fine; any other
	// failure is fatal because KNN search would be dead on arrival.
	if err := store.CreateCatalogIndex(ctx, &db.IndexConfig{
		Dimensions: cfg.Embedding.Dimensions,
	}); err != nil && !errors.Is(err, db.ErrIndexExists) {
		logger.Fatal("Failed to create catalog index", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Vectorizer: remote dense embeddings, local sparse hashing.
	embedder := vectorizer.NewDenseEmbedder(&vectorizer.DenseConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	vec := vectorizer.New(embedder, vectorizer.NewSparseEncoder(0))
	logger.Info("Vectorizer created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Shared retrieval front-end for both pipelines.
	repo := catalogrepo.New(store, keys, cfg.Retrieval.PostingsLimit, logger)
	retriever := retrieveuc.New(
		vec, repo,
		cfg.Retrieval.FetchK,
		time.Duration(cfg.Retrieval.SubqueryTimeoutMs)*time.Millisecond,
		logger,
	)

	// Trace recorder shared by both pipelines.
	sink, err := trace.NewJSONLSink(cfg.Trace.Path)
	if err != nil {
		logger.Fatal("Failed to open trace sink", zap.Error(err))
	}
	recorder, err := trace.NewRecorder(cfg.Trace.Workers, sink, logger)
	if err != nil {
		logger.Fatal("Failed to create trace recorder", zap.Error(err))
	}
	defer func() { _ = recorder.Close() }()

	// Resolution pipeline: RRF fusion, LLM judge, long positive-match TTL.
	judgeCfg := openai.DefaultConfig(cfg.Judge.APIKey)
	if cfg.Judge.BaseURL != "" {
		judgeCfg.BaseURL = cfg.Judge.BaseURL
	}
	// Pipeline stages outlive client disconnects, so the judge call needs its
	// own transport-level deadline.
	judgeCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	judge := gateuc.NewJudge(openai.NewClientWithConfig(judgeCfg), cfg.Judge.Model, logger)

	resolvePipe := pipelineuc.New(
		"resolve",
		retriever,
		fusionuc.NewRRF(cfg.Resolve.Candidates),
		judge,
		respcache.New(store, keys, "resolve",
			time.Duration(cfg.Resolve.CacheTTLSec)*time.Second,
			metrics.ResponseCacheTotal, logger),
		recorder,
		logger,
	)

	// Ranking pipeline: union + cross-encoder rerank, threshold gate.
	scorer := reranker.New(&reranker.Config{
		BaseURL: cfg.Reranker.Endpoint,
		Model:   cfg.Reranker.Model,
		Timeout: time.Duration(cfg.Reranker.TimeoutMs) * time.Millisecond,
		Logger:  logger,
	})

	rankPipe := pipelineuc.New(
		"rank",
		retriever,
		fusionuc.NewRerank(scorer, cfg.Rank.PoolSize),
		gateuc.NewThreshold(cfg.Rank.MinScore, cfg.Rank.MaxCount),
		respcache.New(store, keys, "rank",
			time.Duration(cfg.Rank.CacheTTLSec)*time.Second,
			metrics.ResponseCacheTotal, logger),
		recorder,
		logger,
	)

	healthSvc := healthuc.New(store, embedder)

	server := chiTransport.NewServer(
		resolvePipe, rankPipe, healthSvc,
		cfg.Rank.DefaultCount, cfg.Rank.MaxCount,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

			// Canonical log line — one line per request
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
