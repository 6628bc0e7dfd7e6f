package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/cache"
	"github.com/geocoder89/givehub/internal/config"
	"github.com/geocoder89/givehub/internal/db"
	"github.com/geocoder89/givehub/internal/donation"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/guard"
	httpx "github.com/geocoder89/givehub/internal/http"
	"github.com/geocoder89/givehub/internal/http/handlers"
	"github.com/geocoder89/givehub/internal/observability"
	"github.com/geocoder89/givehub/internal/payment"
	"github.com/geocoder89/givehub/internal/queue/redisclient"
	"github.com/geocoder89/givehub/internal/repo/postgres"
	"github.com/geocoder89/givehub/internal/security"
	"github.com/geocoder89/givehub/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, "givehub-web")

	startCtx, cancelStart := config.WithTimeout(15 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, "givehub-web", cfg.Env, cfg.OTELEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	rc, err := redisclient.Connect(startCtx, redisclient.ConfigFrom(cfg))
	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}
	defer rc.Close()

	checks := map[string]handlers.Check{
		"redis": rc.Ping,
	}

	// the reconciliation ledger is optional; without it a charge that could
	// not be recorded is only logged
	var (
		reconciler donation.Reconciler
		ledger     handlers.ReconciliationStore
	)
	pool, err := db.NewPool(startCtx, cfg.DBURL, 5)
	if err != nil {
		log.Warn("reconciliation ledger unavailable", "err", err)
	} else {
		defer pool.Close()
		jobsRepo := postgres.NewJobsRepo(pool, prom)
		repo := postgres.NewReconciliationsRepo(pool, jobsRepo, prom)
		reconciler = repo
		ledger = repo
		checks["db"] = pool.Ping
	}

	notices := flash.NewNotifier(flash.NewRedisStore(rc.Raw()))
	manager := session.NewManager(session.NewRedisStore(rc.Raw(), log), nil, cfg.SessionTTL(), log)

	api := apiclient.New(cfg.BackendURL, manager, notices,
		apiclient.WithProm(prom),
		apiclient.WithLogger(log),
	)
	manager.SetAuthenticator(api)

	var confirmer payment.Confirmer
	if cfg.StripePublishableKey != "" {
		confirmer = payment.NewStripeConfirmer(cfg.StripeAPIURL, cfg.StripePublishableKey, &http.Client{Timeout: 15 * time.Second})
	} else {
		log.Warn("STRIPE_PUBLISHABLE_KEY not set, donations are disabled")
	}

	var csrfKey []byte
	if cfg.CSRFEnabled {
		csrfKey, err = security.DeriveKey(cfg.SessionSecret, "csrf")
		if err != nil {
			log.Error("csrf key derivation failed", "err", err)
			os.Exit(1)
		}
	}

	router, err := httpx.NewRouter(httpx.Deps{
		Cfg:             cfg,
		Log:             log,
		Prom:            prom,
		Gatherer:        reg,
		Backend:         api,
		Sessions:        manager,
		Notices:         notices,
		Guard:           guard.New(manager, notices),
		Flow:            donation.NewFlow(api, confirmer, reconciler, notices, prom, log),
		Cache:           cache.New(cfg.EventsCacheTTL()),
		Reconciliations: ledger,
		Checks:          checks,
		CSRFKey:         csrfKey,
	})
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// payment confirmation plus the ledger write can outlast a page render
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "backend", cfg.BackendURL)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
