package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dorzhavian/hardwareexpress-logai/internal/handlers"
	"github.com/dorzhavian/hardwareexpress-logai/internal/ratelimit"
	"github.com/dorzhavian/hardwareexpress-logai/internal/server"
	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
	logaitls "github.com/dorzhavian/hardwareexpress-logai/internal/tls"
	"github.com/dorzhavian/hardwareexpress-logai/internal/ws"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decision service",
		Long: `Run the HTTP decision service.

Endpoints:
  POST /analyze          classify one log record
  GET  /health           liveness and classifier state
  GET  /stream/verdicts  SSE feed of verdicts (?suspicious=1 to filter)
  GET  /ws               websocket feed of verdicts
  GET  /ping             liveness probe

HTTPS is served on :443 as well when AI_TLS_DOMAINS is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides AI_SERVICE_HOST and AI_SERVICE_PORT)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Addr()
	}

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	hub := sse.NewHub(logger)
	wsManager := ws.NewManager(hub, svc.decider, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		Decider:   svc.decider,
		ModelName: cfg.ModelIdentity(),
		Hub:       hub,
		Limiter:   ratelimit.New(),
		RateLimit: ratelimit.PerMinute(cfg.Service.RateLimit),
		WebSocket: wsManager.HandleWS,
		Logger:    logger,

		TrustProxy: cfg.Service.TrustProxy,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE + WebSocket need unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			"addr", addr,
			"mode", svc.decider.Mode(),
			"model", cfg.ModelIdentity(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		server.RunWithRecovery(gctx, logger, "ws-feed", wsManager.Run)
		return nil
	})

	if len(cfg.TLS.Domains) > 0 {
		certs := logaitls.NewCertManager(cfg.TLS.Domains, cfg.TLS.ACMEEmail, cfg.TLS.ACMEStaging, logger)
		g.Go(func() error {
			return certs.Serve(gctx, router)
		})
	}

	if cfg.Service.Preload {
		g.Go(func() error {
			start := time.Now()
			if err := svc.warm(); err != nil {
				logger.Error("classifier preload failed", "err", err)
				return nil
			}
			logger.Info("classifier loaded", "took", time.Since(start))
			return nil
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
