package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/checkoutlens/checkout-lens/internal/api"
	"github.com/checkoutlens/checkout-lens/internal/cache"
	"github.com/checkoutlens/checkout-lens/internal/config"
	"github.com/checkoutlens/checkout-lens/internal/engine"
	"github.com/checkoutlens/checkout-lens/internal/metrics"
	"github.com/checkoutlens/checkout-lens/internal/repo"
	"github.com/checkoutlens/checkout-lens/internal/rules"
	"github.com/checkoutlens/checkout-lens/internal/services"
	"github.com/checkoutlens/checkout-lens/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting checkout-lens", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider, cacheEnabled := buildCache(cfg, logger)
	defer cacheProvider.Close()

	registry := rules.Builtin()
	if n, err := rules.ApplyPack(registry, cfg.Rules.Path); err != nil {
		logger.Error("failed to load rule pack", slog.String("path", cfg.Rules.Path), slog.Any("error", err))
		os.Exit(1)
	} else if n > 0 {
		logger.Info("rule pack applied", slog.String("path", cfg.Rules.Path), slog.Int("rules", n))
	}

	profile, ok := engine.ProfileByName(cfg.Engine.Profile)
	if !ok {
		logger.Error("unknown correlation profile", slog.String("profile", cfg.Engine.Profile))
		os.Exit(1)
	}
	profile = profile.With(cfg.Engine.TimeWindow.Milliseconds(), cfg.Engine.Threshold)

	tracelog := repo.NewTraceLogClient(
		cfg.Clients.TraceLog.BaseURL,
		cfg.Clients.TraceLog.ListPath,
		cfg.Clients.TraceLog.Timeout,
		cacheProvider,
		cfg.Cache.DiagnosticsTTL,
	)
	if !tracelog.Configured() {
		logger.Warn("tracelog service not configured; analyses must supply diagnostics inline")
	}

	var history services.HistoryStore
	if cfg.History.Enabled {
		history = repo.NewHistoryRepo(cacheProvider, cfg.History.Limit, cfg.History.TTL, logger)
	}

	service := services.NewAnalysisService(logger, registry, profile, tracelog, history)

	var readinessCache cache.Provider
	if cacheEnabled {
		readinessCache = cacheProvider
	}
	handlers := api.NewHandlers(service, readinessCache, logger)
	server := api.NewServer(cfg.Server, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("checkout-lens stopped")
}

// buildCache selects the cache backing: Valkey when configured, an
// in-memory provider when history needs somewhere to live without one, and
// the noop provider otherwise. The second return reports whether an
// external cache is in play; readiness only probes external caches.
func buildCache(cfg *config.Config, logger *slog.Logger) (cache.Provider, bool) {
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, falling back to in-memory", slog.Any("error", err))
			return cache.NewMemoryProvider(), false
		}
		logger.Info("valkey cache connected", slog.String("addr", cfg.Cache.Addr))
		return provider, true
	}
	if cfg.History.Enabled {
		logger.Warn("history enabled without external cache; using process-local storage")
		return cache.NewMemoryProvider(), false
	}
	return cache.NoopProvider{}, false
}
