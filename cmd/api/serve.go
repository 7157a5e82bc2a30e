package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/infra/httpserver"
	"github.com/rdflg/rdflg/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, cfg, logger, true)
		if err != nil {
			return err
		}

		handler := httpserver.NewRouter(a.analysis, a.narrator, httpserver.Options{
			CORSOrigins:         cfg.Server.CORSOrigins,
			RateCapacity:        cfg.Server.RateLimit.Capacity,
			RateRefillPerMinute: cfg.Server.RateLimit.RefillPerMinute,
			Checkers: map[string]middleware.HealthChecker{
				"database": &middleware.DatabaseHealthChecker{DB: a.db},
			},
			Metrics: middleware.NewMetrics(),
			Log:     logger.Named("http"),
		})

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout(),
			WriteTimeout: cfg.WriteTimeout(),
			IdleTimeout:  cfg.IdleTimeout(),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening",
				zap.String("addr", addr),
				zap.String("db", cfg.Database.Driver),
				zap.String("llm", cfg.LLM.Provider))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// graceful shutdown
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)

		var serveErr error
		select {
		case <-stop:
		case serveErr = <-errCh:
		}
		logger.Info("shutting down server...")

		ctx2, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx2); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
		if err := a.close(ctx2); err != nil {
			logger.Warn("pending writes not flushed", zap.Error(err))
		}
		return serveErr
	},
}
