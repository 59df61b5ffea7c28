package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	httphandler "github.com/domeara/becool/internal/http"
	"github.com/domeara/becool/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the coolest-zip lookup as an HTTP service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := buildPipeline(logger)
	if err != nil {
		logger.Error("startup", zap.Error(err))
		return err
	}
	defer p.close(logger)
	cfg := p.cfg

	var cachePing func() error
	if p.memcached != nil {
		cachePing = p.memcached.Ping
	}
	handler := httphandler.NewHandler(p.svc, logger, cfg.DefaultRadiusMiles, cfg.MaxRadiusMiles, cachePing)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	lookupRouter := router.PathPrefix("/coolest").Subrouter()
	lookupRouter.Use(httphandler.RateLimitMiddleware(limiter))
	lookupRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	lookupRouter.HandleFunc("/{zip}", handler.GetCoolest).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		logger.Error("server", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
