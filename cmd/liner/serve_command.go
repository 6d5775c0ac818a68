package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/liner/internal/api"
	"github.com/sydlexius/liner/internal/api/middleware"
	"github.com/sydlexius/liner/internal/auth"
	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/enrich"
	"github.com/sydlexius/liner/internal/event"
	"github.com/sydlexius/liner/internal/logging"
	"github.com/sydlexius/liner/internal/version"
	"github.com/sydlexius/liner/internal/watcher"
	"github.com/sydlexius/liner/internal/webhook"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled batches and the HTTP trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, cc *commandContext) error {
	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cc.openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	logger.Info("starting liner",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	bus := event.NewBus(logger, 256)
	notifier := webhook.NewDispatcher(webhook.FromConfig(cfg.Notify), logger)
	bus.SubscribeAll(notifier.HandleEvent)
	if n := notifier.Len(); n > 0 {
		logger.Info("webhook notifications enabled", slog.Int("webhooks", n))
	}

	runner := enrich.NewRunner(rt.store, newEngine(cfg, logger), bus, cfg.Enrich, logger)
	scheduler := enrich.NewScheduler(runner, cfg.Enrich.Schedule, logger)

	verifier := auth.NewVerifier(cfg.Server.TriggerTokenHash)
	if !verifier.Enabled() {
		logger.Warn("server.trigger_token_hash not set; protected endpoints answer 403")
	}

	cfgWatcher := watcher.NewService(cc.configPath(), config.Load, func(next *config.Config) {
		if rt.logManager.Reconfigure(logging.FromSettings(next.Logging)) {
			logger.Info("logging reconfigured", "level", next.Logging.Level, "format", next.Logging.Format)
		}
		verifier.SetHash(next.Server.TriggerTokenHash)
		notifier.SetWebhooks(webhook.FromConfig(next.Notify))
	}, logger)

	g, gctx := errgroup.WithContext(sigCtx)

	router := api.NewRouter(api.RouterDeps{
		ArtistService:  rt.store,
		Runner:         runner,
		Verifier:       verifier,
		TriggerLimiter: middleware.NewRateLimiter(gctx, 10*time.Second, 3),
		Logger:         logger,
		BasePath:       cfg.Server.BasePath,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// Triggered batches run inside the request, so there is no write timeout.
	// Shutdown cancels the base context, which stops a running batch after
	// its current artist.
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return bus.Run(gctx) })
	g.Go(func() error {
		cfgWatcher.Start(gctx)
		return nil
	})
	if cfg.Database.MaintenanceInterval > 0 {
		maint := newMaintenance(rt)
		g.Go(func() error { return maint.Run(gctx, cfg.Database.MaintenanceInterval) })
	}

	err = g.Wait()
	notifier.Wait()
	return err
}
