package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wikibridge/internal/bridge/cache"
	"wikibridge/internal/bridge/cooldown"
	"wikibridge/internal/bridge/handler"
	"wikibridge/internal/bridge/metrics"
	"wikibridge/internal/bridge/service"
	"wikibridge/internal/bridge/store"
	"wikibridge/internal/bridge/verifier"
	"wikibridge/internal/platform/config"
	"wikibridge/internal/platform/health"
	"wikibridge/internal/platform/logger"
	"wikibridge/internal/platform/mediawiki"
	adminmw "wikibridge/pkg/platform/middleware/admin"
	request "wikibridge/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing wikibridge",
		"addr", cfg.Addr,
		"ledger_path", cfg.LedgerPath,
		"wiki_api_url", cfg.WikiAPIURL,
	)

	ledger, err := store.NewFileStore(cfg.LedgerPath)
	if err != nil {
		log.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}

	index := cache.New(ledger, cfg.CacheTTL, cache.WithLogger(log))

	wiki, err := mediawiki.New(cfg.WikiAPIURL, cfg.WikiTimeout, mediawiki.WithLogger(log))
	if err != nil {
		log.Error("failed to build wiki client", "error", err)
		os.Exit(1)
	}

	owner, err := verifier.New(wiki,
		verifier.WithSubpage(cfg.SubpageName),
		verifier.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to build verifier", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	bridge, err := service.New(ledger, index, owner,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build bridge service", "error", err)
		os.Exit(1)
	}

	cooldowns := cooldown.New(cfg.CooldownWindow)
	bridgeHandler := handler.New(bridge, cooldowns, cfg.SubpageURL, log, handler.WithMetrics(m))

	healthHandler := health.New()
	healthHandler.RegisterCheck("ledger", func() error {
		_, err := ledger.Load(context.Background())
		return err
	})

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	bridgeHandler.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		bridgeHandler.RegisterAdmin(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
