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
	"github.com/warp/worktime/api"
	"github.com/warp/worktime/metrics"
	"github.com/warp/worktime/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API with the live balance stream, the period close scheduler and the metrics endpoint.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	logger := a.logger
	defer func() {
		if err := a.close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("storage", a.cfg.Storage.Type).
		Str("policy", a.svc.RuleSet().Policy.String()).
		Str("timezone", a.svc.Location().String()).
		Msg("Starting worktime")

	hub := tracker.NewHub(a.svc, a.cfg.LiveInterval(), logger)

	var scheduler *api.PeriodCloseScheduler
	if a.cfg.Scheduler.Enabled {
		scheduler, err = api.NewPeriodCloseScheduler(a.svc, a.cfg.Scheduler.PeriodCloseCron, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	} else {
		logger.Info().Msg("Period close scheduler disabled")
	}

	handler := api.NewHandler(a.svc, hub, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Metrics:        metrics.Handler(),
		Logger:         logger,
	})

	// WriteTimeout stays 0 by default so the live stream is not cut.
	server := &http.Server{
		Addr:         a.cfg.Server.Listen,
		Handler:      router,
		ReadTimeout:  a.cfg.ReadTimeout(),
		WriteTimeout: a.cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}
	server.RegisterOnShutdown(handler.CloseStreams)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Close()

	logger.Info().Msg("worktime stopped")
	return nil
}
