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

	"github.com/kailas-cloud/storefront-search/internal/config"
	"github.com/kailas-cloud/storefront-search/internal/db"
	dbRedis "github.com/kailas-cloud/storefront-search/internal/db/redis"
	logpkg "github.com/kailas-cloud/storefront-search/internal/logger"
	"github.com/kailas-cloud/storefront-search/internal/metrics"
	"github.com/kailas-cloud/storefront-search/internal/repository/locationcache"
	"github.com/kailas-cloud/storefront-search/internal/repository/resultcache"
	backendTransport "github.com/kailas-cloud/storefront-search/internal/transport/backend"
	chiTransport "github.com/kailas-cloud/storefront-search/internal/transport/chi"
	openaiSugg "github.com/kailas-cloud/storefront-search/internal/transport/openai"
	healthuc "github.com/kailas-cloud/storefront-search/internal/usecase/health"
	locationuc "github.com/kailas-cloud/storefront-search/internal/usecase/location"
	searchuc "github.com/kailas-cloud/storefront-search/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/storefront-search/internal/usecase/session"
	"github.com/kailas-cloud/storefront-search/internal/version"
)

const sweepInterval = time.Minute

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

	logger.Info("Starting storefront search API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.BaseURL),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Optional cache database. Valkey and Redis share the rueidis store.
	var store db.Store
	if cfg.CacheEnabled() {
		store = openStore(ctx, cfg, logger)
		defer store.Close()
	} else {
		logger.Info("No cache database configured, using in-process state")
	}

	backendClient, err := backendTransport.NewClient(backendTransport.Config{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: time.Duration(cfg.Backend.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create backend client", zap.Error(err))
	}

	// Result cache decorator (outermost backend layer)
	var backend searchuc.Backend = backendClient
	if store != nil && cfg.Cache.ResultsTTLSec > 0 {
		backend = resultcache.New(
			backendClient, store,
			time.Duration(cfg.Cache.ResultsTTLSec)*time.Second,
			cfg.Cache.KeyPrefix, metrics.ResultCacheTotal, logger,
		)
		logger.Info("Result cache enabled", zap.Int("ttl_sec", cfg.Cache.ResultsTTLSec))
	}

	locator := buildLocator(ctx, cfg, store, logger)
	suggester := buildSuggester(cfg, backendClient, logger)

	// Pass nil interface (not typed nil pointer!) if tracking is disabled.
	var tracker searchuc.Tracker
	if cfg.Tracking.IsEnabled() {
		tracker = backendClient
	}

	sessions := sessionuc.NewTracker(time.Duration(cfg.Session.IdleTTLSec) * time.Second)
	go sessions.Run(ctx, sweepInterval)

	composer := searchuc.NewComposer(tracker, time.Duration(cfg.Tracking.TimeoutSec)*time.Second)
	gateway := searchuc.NewGateway(backend, suggester, cfg.Suggestions.Max)
	searchSvc := searchuc.New(gateway, locator, sessions, composer, searchuc.LogRecorder{})

	// Health service
	var cachePinger healthuc.Pinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(backendClient, cachePinger)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, sessions, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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
	stop()

	// Let in-flight tracking calls finish before the process exits
	composer.Wait()

	logger.Info("Server stopped gracefully")
}

// openStore connects to the cache database and waits for it to become ready.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) db.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to cache database")
	return store
}

// buildLocator assembles the geo provider: optional remote source plus a fix cache.
func buildLocator(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) *locationuc.Provider {
	window := time.Duration(cfg.Geo.CacheWindowSec) * time.Second

	var cache locationuc.Cache
	if store != nil {
		cache = locationcache.NewKV(store, cfg.Cache.KeyPrefix, window, logger)
	} else {
		mem := locationcache.NewMemory(window)
		go sweepMemory(ctx, mem, logger)
		cache = mem
	}

	var source locationuc.Source
	if cfg.Geo.SourceURL != "" {
		source = backendTransport.NewLocationSource(nil, cfg.Geo.SourceURL)
		logger.Info("Location source configured", zap.String("url", cfg.Geo.SourceURL))
	}

	return locationuc.NewProvider(
		source, cache, time.Duration(cfg.Geo.TimeoutSec)*time.Second,
		metrics.LocationOutcomesTotal, logger,
	)
}

// buildSuggester picks the did-you-mean collaborator. Returns a nil interface for "none".
func buildSuggester(cfg config.Config, backend *backendTransport.Client, logger *zap.Logger) searchuc.Suggester {
	switch cfg.Suggestions.Provider {
	case "openai":
		logger.Info("Suggestions via OpenAI", zap.String("model", cfg.Suggestions.OpenAI.Model))
		return openaiSugg.NewSuggester(&openaiSugg.Config{
			APIKey:  cfg.Suggestions.OpenAI.APIKey,
			BaseURL: cfg.Suggestions.OpenAI.BaseURL,
			Model:   cfg.Suggestions.OpenAI.Model,
			Max:     cfg.Suggestions.Max,
			Logger:  logger,
		})
	case "none":
		return nil
	default:
		return backend
	}
}

func sweepMemory(ctx context.Context, mem *locationcache.MemoryCache, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug("Expired location fixes swept", zap.Int("count", n))
			}
		}
	}
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.Query().Get("q")),
				zap.String("session_id", ww.Header().Get(chiTransport.HeaderSessionID)),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
