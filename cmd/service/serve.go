// cmd/service/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"review-ladder/internal/api"
	"review-ladder/internal/leaderboard"
	"review-ladder/internal/syncer"
	"review-ladder/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poller and serve the webhook and read API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	// Initialize application components
	poll, err := a.pollClient()
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	hooks, err := a.hookClient()
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	appSyncer := syncer.NewSyncer(poll, a.store, a.rec, a.logger, syncer.Options{
		Interval:     a.cfg.SyncInterval,
		FullInterval: a.cfg.FullSyncInterval,
		Since:        a.cfg.Since,
	})
	hook := webhook.NewHandler(hooks, a.store, a.rec, webhook.Options{
		Secret:       a.cfg.WebhookSecret,
		VerifySource: a.cfg.WebhookVerifySource,
		MetaTTL:      a.cfg.WebhookMetaTTL,
	}, a.logger)
	router := api.NewRouter(leaderboard.NewService(a.store), hook, a.cfg.Since, a.logger)

	// Start the syncer in a separate goroutine
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		appSyncer.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-serveErr:
		cancel()
		<-syncDone
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", "error", err)
	}
	<-syncDone
	a.logger.Info("Exiting")
	return nil
}
