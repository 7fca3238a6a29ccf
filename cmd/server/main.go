package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/config"
	"github.com/atmx/sales-analytics/internal/generator"
	"github.com/atmx/sales-analytics/internal/metrics"
	"github.com/atmx/sales-analytics/internal/report"
	"github.com/atmx/sales-analytics/internal/store"
	"github.com/atmx/sales-analytics/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Report money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid SALES_REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
		}
	} else {
		st = memoryStore(cfg.DataFile)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Strategies ---
	registry := strategy.NewDefaultRegistry()
	registry.SetFlatRate(cfg.FlatRate)

	// --- WebSocket hub ---
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	wsHub := report.NewWSHub()
	go wsHub.Run(ctx)

	// --- Report service ---
	reportSvc := report.NewService(st, registry, cfg.Workers, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for dashboard cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"sales-analytics"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for run notifications. Kept outside the
		// timeout group since connections are long-lived.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Post("/reports", reportSvc.CreateReport)
			r.Get("/reports/current", reportSvc.CurrentReport)
			r.Get("/strategies", reportSvc.ListStrategies)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("sales-analytics listening", "port", cfg.Port, "workers", cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down sales-analytics...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stop()
	fmt.Println("sales-analytics stopped")
}

// memoryStore loads path, falling back to a generated dataset when the
// file does not exist.
func memoryStore(path string) store.Store {
	ms, err := store.LoadJSONFile(path)
	if err == nil {
		slog.Info("dataset loaded", "file", path)
		return ms
	}
	if !errors.Is(err, os.ErrNotExist) {
		slog.Error("dataset load failed", "file", path, "err", err)
		os.Exit(1)
	}

	slog.Warn("dataset file not found, serving generated data", "file", path)
	gen, err := generator.New(generator.DefaultConfig())
	if err != nil {
		slog.Error("generator setup failed", "err", err)
		os.Exit(1)
	}
	return store.NewMemoryStore(gen.Dataset())
}
