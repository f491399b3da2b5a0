package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/contract-state-cache/internal/config"
	"github.com/Sternrassler/contract-state-cache/pkg/cache"
	"github.com/Sternrassler/contract-state-cache/pkg/logging"
	"github.com/Sternrassler/contract-state-cache/pkg/metrics"
	"github.com/Sternrassler/contract-state-cache/pkg/readthrough"
	"github.com/Sternrassler/contract-state-cache/pkg/store"
)

// maxValueBytes bounds PUT request bodies.
const maxValueBytes = 1 << 20

// statusClientClosedRequest is written when the client went away before the
// store answered. Nobody reads it; it keeps access logs apart from 5xx.
const statusClientClosedRequest = 499

func main() {
	cfg, err := config.Load(getEnv("CONFIG_FILE", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Proxy stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redisOptions(cfg.Redis)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
	}
	logger.Info().Str("addr", redisOpts.Addr).Int("db", redisOpts.DB).Msg("Connected to Redis")

	layer, err := cache.New(cfg.Cache, logging.NewLogger("cache"))
	if err != nil {
		return err
	}
	defer layer.Close()

	if _, err := metrics.RegisterCache(metrics.Registry, layer); err != nil {
		return err
	}

	stateStore := store.New(redisClient, cfg.Redis.Retry.Store(), logging.NewLogger("store"))
	svc := readthrough.New(layer, stateStore, cfg.ReadThrough, logging.NewLogger("readthrough"))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newMux(layer, stateStore, svc, cfg.Server.RequestTimeout, logging.NewLogger("proxy")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("policy", string(cfg.Cache.Policy)).
			Bool("cache_enabled", cfg.Cache.Enabled).
			Msg("Starting statecache proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// redisOptions accepts either host:port or a redis:// URL.
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if strings.Contains(cfg.URL, "://") {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.DB != 0 {
			opts.DB = cfg.DB
		}
		return opts, nil
	}
	return &redis.Options{Addr: cfg.URL, DB: cfg.DB}, nil
}

func newMux(layer *cache.Layer, stateStore *store.Store, svc *readthrough.Service, timeout time.Duration, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(stateStore))
	mux.HandleFunc("GET /stats", statsHandler(layer))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /state/{namespace}/{key}", getStateHandler(svc, timeout, logger))
	mux.HandleFunc("PUT /state/{namespace}/{key}", putStateHandler(stateStore, svc, timeout, logger))
	mux.HandleFunc("DELETE /state/{namespace}/{key}", invalidateHandler(svc))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(stateStore *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := stateStore.Ping(ctx); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func statsHandler(layer *cache.Layer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(layer.Stats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func getStateHandler(svc *readthrough.Service, timeout time.Duration, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace, key := r.PathValue("namespace"), r.PathValue("key")

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		value, cached, err := svc.Get(ctx, namespace, key)
		if err != nil {
			writeStoreError(w, err, logger, namespace, key)
			return
		}

		if cached {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, value); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

// putStateHandler writes the request body to the store and drops the cached
// copy, so the next read observes the new value.
func putStateHandler(stateStore *store.Store, svc *readthrough.Service, timeout time.Duration, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace, key := r.PathValue("namespace"), r.PathValue("key")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := stateStore.PutState(ctx, namespace, key, string(body)); err != nil {
			writeStoreError(w, err, logger, namespace, key)
			return
		}
		svc.Invalidate(namespace, key)

		w.WriteHeader(http.StatusNoContent)
	}
}

func invalidateHandler(svc *readthrough.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Invalidate(r.PathValue("namespace"), r.PathValue("key"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeStoreError(w http.ResponseWriter, err error, logger zerolog.Logger, namespace, key string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "state not found", http.StatusNotFound)
	case errors.Is(err, context.Canceled):
		logger.Debug().
			Err(err).
			Str("namespace", namespace).
			Str("key", key).
			Msg("Client cancelled request")
		w.WriteHeader(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "store timeout", http.StatusGatewayTimeout)
	default:
		logger.Error().
			Err(err).
			Str("namespace", namespace).
			Str("key", key).
			Msg("Store request failed")
		http.Error(w, fmt.Sprintf("store request failed: %v", err), http.StatusBadGateway)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
