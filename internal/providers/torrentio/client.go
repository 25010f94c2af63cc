package torrentio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/fetch"
)

const defaultBaseURL = "https://torrentio.strem.fun"

type Fetcher interface {
	Get(ctx context.Context, req fetch.Request) (fetch.Response, error)
}

type Config struct {
	BaseURL string
	// Fetcher should be configured without retries; the fallback issues a
	// single timed request.
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Client queries a stream API whose records are already in output shape.
type Client struct {
	baseURL string
	fetcher Fetcher
	logger  *slog.Logger
}

// streamsPayload only fixes the array shape; records stay opaque.
type streamsPayload struct {
	Streams []json.RawMessage `json:"streams"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: cfg.Fetcher,
		logger:  logger,
	}
}

// Streams returns the provider's records for the primary key unmodified. Any
// failure yields nil.
func (c *Client) Streams(ctx context.Context, contentType domain.ContentType, primaryKey string) []domain.Stream {
	streams, err := c.fetch(ctx, contentType, primaryKey)
	if err != nil {
		c.logger.Warn("fallback lookup failed",
			slog.String("type", string(contentType)),
			slog.String("key", primaryKey),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return streams
}

func (c *Client) fetch(ctx context.Context, contentType domain.ContentType, primaryKey string) ([]domain.Stream, error) {
	target := fmt.Sprintf("%s/stream/%s/%s.json", c.baseURL, url.PathEscape(string(contentType)), url.PathEscape(primaryKey))
	resp, err := c.fetcher.Get(ctx, fetch.Request{
		Upstream: "fallback",
		URL:      target,
		Accept:   "application/json",
	})
	if err != nil {
		return nil, err
	}
	var payload streamsPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode fallback streams: %w", err)
	}
	return lo.Map(payload.Streams, func(raw json.RawMessage, _ int) domain.Stream {
		return domain.RawStream(raw)
	}), nil
}
