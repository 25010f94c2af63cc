package cinemeta

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/fetch"
)

const (
	defaultBaseURL  = "https://v3-cinemeta.strem.io"
	defaultCacheTTL = 24 * time.Hour
)

type Fetcher interface {
	Get(ctx context.Context, req fetch.Request) (fetch.Response, error)
}

// Cache stores resolved metadata by lookup key. Only found entries are cached.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Metadata, bool, error)
	Set(ctx context.Context, key string, meta domain.Metadata, ttl time.Duration) error
}

type Config struct {
	BaseURL  string
	Fetcher  Fetcher
	Cache    Cache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

type Client struct {
	baseURL  string
	fetcher  Fetcher
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

type metaResponse struct {
	Meta *struct {
		Name        string          `json:"name"`
		Title       string          `json:"title"`
		Year        json.RawMessage `json:"year"`
		ReleaseInfo json.RawMessage `json:"releaseInfo"`
	} `json:"meta"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		fetcher:  cfg.Fetcher,
		cache:    cfg.Cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Resolve looks up title and year for the identity. Any failure yields None;
// callers proceed without metadata.
func (c *Client) Resolve(ctx context.Context, identity domain.RequestIdentity) mo.Option[domain.Metadata] {
	key := identity.MetadataKey()
	cacheKey := string(identity.ContentType) + ":" + key

	if c.cache != nil {
		if meta, found, err := c.cache.Get(ctx, cacheKey); err == nil && found {
			return mo.Some(meta)
		}
	}

	meta, err := c.fetch(ctx, identity.ContentType, key)
	if err != nil {
		c.logger.Warn("metadata lookup failed",
			slog.String("type", string(identity.ContentType)),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return mo.None[domain.Metadata]()
	}
	if meta.IsAbsent() {
		return meta
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, meta.MustGet(), c.cacheTTL); err != nil {
			c.logger.Debug("metadata cache store failed", slog.String("error", err.Error()))
		}
	}
	return meta
}

func (c *Client) fetch(ctx context.Context, contentType domain.ContentType, key string) (mo.Option[domain.Metadata], error) {
	target := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, url.PathEscape(string(contentType)), url.PathEscape(key))
	resp, err := c.fetcher.Get(ctx, fetch.Request{
		Upstream: "metadata",
		URL:      target,
		Accept:   "application/json",
	})
	if err != nil {
		return mo.None[domain.Metadata](), err
	}
	var payload metaResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return mo.None[domain.Metadata](), fmt.Errorf("decode metadata: %w", err)
	}
	if payload.Meta == nil {
		return mo.None[domain.Metadata](), nil
	}
	title := strings.TrimSpace(payload.Meta.Name)
	if title == "" {
		title = strings.TrimSpace(payload.Meta.Title)
	}
	year := leadingInt(payload.Meta.Year)
	if year == 0 {
		year = leadingInt(payload.Meta.ReleaseInfo)
	}
	return mo.Some(domain.Metadata{Title: title, Year: year}), nil
}

// leadingInt reads a JSON number, or the leading digits of a JSON string such
// as "2011–2013". Anything else is 0.
func leadingInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return int(number)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0
	}
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	value, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return value
}
