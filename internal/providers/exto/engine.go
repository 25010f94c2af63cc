package exto

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/fetch"
	"torrentstream/streamresolver/internal/providers/common"
)

const (
	defaultBaseURL = "https://ext.to"
	proxyKeyHeader = "X-Proxy-Key"
	detailPrefix   = "/torrent/"
	maxDetailPages = 5
)

// Fetcher is the outbound transport, already wrapped in the retry policy.
type Fetcher interface {
	Get(ctx context.Context, req fetch.Request) (fetch.Response, error)
}

type Config struct {
	BaseURL  string
	ProxyKey string
	Fetcher  Fetcher
	Logger   *slog.Logger
}

// Engine scrapes the search surface for magnet links. Candidates and detail
// pages are visited one at a time.
type Engine struct {
	base     *url.URL
	proxyKey string
	fetcher  Fetcher
	logger   *slog.Logger
}

func NewEngine(cfg Config) (*Engine, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, fmt.Errorf("invalid search base %q: %w", raw, err)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		base:     base,
		proxyKey: strings.TrimSpace(cfg.ProxyKey),
		fetcher:  cfg.Fetcher,
		logger:   logger,
	}, nil
}

// Search returns labeled magnet links for query in discovery order. The first
// candidate that yields links wins; failures only move on to the next one.
func (e *Engine) Search(ctx context.Context, query string) []domain.LabeledLink {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	for _, candidate := range e.candidates(query) {
		if ctx.Err() != nil {
			return nil
		}
		links, err := e.scrapeCandidate(ctx, candidate)
		if err != nil {
			e.logger.Warn("search candidate failed",
				slog.String("url", candidate),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

func (e *Engine) candidates(query string) []string {
	escaped := escapeQuery(query)
	base := e.base.String()
	return []string{
		base + "/browse/?q=" + escaped,
		base + "/search?q=" + escaped,
	}
}

func (e *Engine) scrapeCandidate(ctx context.Context, candidate string) ([]domain.LabeledLink, error) {
	doc, err := e.fetchDocument(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if magnets := ExtractMagnets(doc); len(magnets) > 0 {
		return Enrich(doc, magnets), nil
	}
	details := ExtractDetailLinks(doc, e.base, maxDetailPages)
	if len(details) == 0 {
		e.logger.Debug("search candidate has no links",
			slog.String("url", candidate),
			slog.String("title", common.CompactSnippet(doc.Title(), 120)),
		)
		return nil, nil
	}
	return e.scrapeDetails(ctx, details), nil
}

func (e *Engine) scrapeDetails(ctx context.Context, detailURLs []string) []domain.LabeledLink {
	var results []domain.LabeledLink
	for _, detailURL := range detailURLs {
		if ctx.Err() != nil {
			break
		}
		doc, err := e.fetchDocument(ctx, detailURL)
		if err != nil {
			e.logger.Debug("detail page failed",
				slog.String("url", detailURL),
				slog.String("error", err.Error()),
			)
			continue
		}
		if magnets := ExtractMagnets(doc); len(magnets) > 0 {
			results = append(results, Enrich(doc, magnets)...)
		}
	}
	return lo.UniqBy(results, func(link domain.LabeledLink) string {
		return link.URL
	})
}

func (e *Engine) fetchDocument(ctx context.Context, target string) (*common.Document, error) {
	header := http.Header{}
	if e.proxyKey != "" {
		header.Set(proxyKeyHeader, e.proxyKey)
	}
	resp, err := e.fetcher.Get(ctx, fetch.Request{
		Upstream: "search",
		URL:      target,
		Accept:   "text/html",
		Header:   header,
	})
	if err != nil {
		return nil, err
	}
	doc, err := common.ParseDocument(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

// ExtractMagnets returns the distinct magnet hrefs of doc in document order.
func ExtractMagnets(doc *common.Document) []string {
	var magnets []string
	for _, link := range doc.LinksWithPrefix(common.MagnetPrefix) {
		if href := link.Href(); common.IsMagnet(href) {
			magnets = append(magnets, href)
		}
	}
	return lo.Uniq(magnets)
}

// ExtractDetailLinks returns up to limit distinct absolute detail-page URLs.
// Root-relative hrefs are appended to base, keeping any path base is mounted
// under (e.g. a proxy prefix).
func ExtractDetailLinks(doc *common.Document, base *url.URL, limit int) []string {
	prefix := strings.TrimRight(base.String(), "/")
	var details []string
	for _, link := range doc.LinksWithPrefix(detailPrefix) {
		ref, err := url.Parse(prefix + link.Href())
		if err != nil {
			continue
		}
		details = append(details, ref.String())
	}
	details = lo.Uniq(details)
	if len(details) > limit {
		details = details[:limit]
	}
	return details
}

// escapeQuery percent-encodes like encodeURIComponent, spaces as %20.
func escapeQuery(query string) string {
	return strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
}
