package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	apihttp "torrentstream/streamresolver/internal/api/http"
	"torrentstream/streamresolver/internal/app"
	"torrentstream/streamresolver/internal/metrics"
	"torrentstream/streamresolver/internal/telemetry"
)

const serviceName = "stream-resolver"

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	if cfg.ConfigFileWarning != "" {
		logger.Warn("config file ignored",
			slog.String("path", cfg.ConfigFile),
			slog.String("error", cfg.ConfigFileWarning),
		)
	}

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Int("retries", cfg.Retries),
		slog.Duration("retryBaseDelay", cfg.RetryBaseDelay),
		slog.String("searchBase", cfg.SearchBase),
		slog.Bool("hasProxyKey", cfg.ProxyKey != ""),
		slog.String("metadataBase", cfg.MetadataBase),
		slog.Bool("fallbackEnabled", cfg.FallbackEnabled),
		slog.String("fallbackBase", cfg.FallbackBase),
		slog.Bool("hasRedis", cfg.RedisURL != ""),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.BuildPipeline(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("pipeline setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pipeline.Close()

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithManifest(apihttp.DefaultManifest(telemetry.ServiceVersion)),
	}
	for name, check := range pipeline.Checks {
		serverOpts = append(serverOpts, apihttp.WithHealthCheck(name, check))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.NewServer(pipeline.Service, serverOpts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A resolution is the sum of its sequential upstream calls, so the
		// write deadline stays off and per-call timeouts bound the work.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		logger.Info("stream resolver started", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("stream resolver stopped")
}
