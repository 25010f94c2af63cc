package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"torrentstream/streamresolver/internal/fetch"
	"torrentstream/streamresolver/internal/providers/cinemeta"
	"torrentstream/streamresolver/internal/providers/exto"
	"torrentstream/streamresolver/internal/providers/torrentio"
	"torrentstream/streamresolver/internal/resolve"
)

// Pipeline is the fully wired resolver plus the resources it owns.
type Pipeline struct {
	Service *resolve.Service
	// Checks holds health checks for optional dependencies, keyed by name.
	Checks map[string]func(ctx context.Context) error

	closers []func() error
}

func (p *Pipeline) Close() error {
	var first error
	for _, closer := range p.closers {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildPipeline wires every pipeline stage from cfg. Only an invalid search
// base is fatal; an unusable Redis URL disables the metadata cache.
func BuildPipeline(ctx context.Context, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	pipeline := &Pipeline{Checks: map[string]func(context.Context) error{}}
	httpClient := fetch.NewHTTPClient(cfg.RequestTimeout)

	fetcher := fetch.New(fetch.Config{
		Client:    httpClient,
		Timeout:   cfg.RequestTimeout,
		Retry:     fetch.RetryConfig{Retries: cfg.Retries, BaseDelay: cfg.RetryBaseDelay},
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})

	engine, err := exto.NewEngine(exto.Config{
		BaseURL:  cfg.SearchBase,
		ProxyKey: cfg.ProxyKey,
		Fetcher:  fetcher,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	metadataConfig := cinemeta.Config{
		BaseURL:  cfg.MetadataBase,
		Fetcher:  fetcher,
		CacheTTL: cfg.MetadataCacheTTL,
		Logger:   logger,
	}
	if client := connectRedis(ctx, cfg.RedisURL, logger); client != nil {
		cache := cinemeta.NewRedisCache(client)
		metadataConfig.Cache = cache
		pipeline.Checks["redis"] = cache.Ping
		pipeline.closers = append(pipeline.closers, client.Close)
	}

	opts := []resolve.Option{resolve.WithLogger(logger)}
	if cfg.FallbackEnabled {
		opts = append(opts, resolve.WithFallback(torrentio.NewClient(torrentio.Config{
			BaseURL: cfg.FallbackBase,
			Fetcher: fetch.New(fetch.Config{
				Client:    httpClient,
				Timeout:   cfg.RequestTimeout,
				UserAgent: cfg.UserAgent,
				Logger:    logger,
			}),
			Logger: logger,
		})))
	}

	pipeline.Service = resolve.NewService(cinemeta.NewClient(metadataConfig), engine, opts...)
	return pipeline, nil
}

func connectRedis(ctx context.Context, redisURL string, logger *slog.Logger) *redis.Client {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, metadata cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, metadata cache disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}
