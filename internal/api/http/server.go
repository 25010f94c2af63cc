package apihttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrentstream/streamresolver/internal/domain"
)

type StreamResolver interface {
	Resolve(ctx context.Context, request domain.StreamRequest) domain.StreamResponse
}

// HealthCheck tests an optional dependency. A failing check marks the
// service degraded but never unhealthy: the pipeline works without it.
type HealthCheck func(ctx context.Context) error

// Manifest describes the addon to catalog clients.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
	Catalogs    []any    `json:"catalogs"`
}

func DefaultManifest(version string) Manifest {
	return Manifest{
		ID:          "org.torrentstream.streamresolver",
		Version:     version,
		Name:        "Stream Resolver",
		Description: "Magnet streams scraped from a torrent search surface, with a fallback addon.",
		Resources:   []string{"stream"},
		Types:       []string{string(domain.ContentTypeMovie), string(domain.ContentTypeSeries)},
		IDPrefixes:  []string{"tt"},
		Catalogs:    []any{},
	}
}

type Server struct {
	resolver StreamResolver
	manifest Manifest
	checks   map[string]HealthCheck
	logger   *slog.Logger
}

const (
	jsonSuffix         = ".json"
	healthCheckTimeout = 2 * time.Second
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithManifest(manifest Manifest) ServerOption {
	return func(s *Server) {
		s.manifest = manifest
	}
}

func WithHealthCheck(name string, check HealthCheck) ServerOption {
	return func(s *Server) {
		if check != nil {
			s.checks[name] = check
		}
	}
}

func NewServer(resolver StreamResolver, options ...ServerOption) *Server {
	server := &Server{
		resolver: resolver,
		manifest: DefaultManifest("dev"),
		checks:   map[string]HealthCheck{},
		logger:   slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /manifest.json", s.handleManifest)
	mux.HandleFunc("GET /stream/{type}/{id}", s.handleStream)
	mux.HandleFunc("GET /stream/{type}/{id}/{extra}", s.handleStream)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, corsMiddleware(mux)), "stream-resolver",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	status := "ok"
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}
	payload := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
	}
	if len(components) > 0 {
		payload["components"] = components
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manifest)
}

// handleStream answers /stream/{type}/{id}.json and
// /stream/{type}/{id}/{extra}.json. The resolver decides what a malformed
// id means; this layer only insists on the .json suffix.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	request, ok := parseStreamRequest(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown stream route")
		return
	}
	if s.resolver == nil {
		writeJSON(w, http.StatusOK, domain.EmptyResponse())
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.Resolve(r.Context(), request))
}

func parseStreamRequest(r *http.Request) (domain.StreamRequest, bool) {
	contentType := r.PathValue("type")
	id := r.PathValue("id")
	extra := r.PathValue("extra")

	last := &id
	if extra != "" {
		last = &extra
	}
	trimmed, found := strings.CutSuffix(*last, jsonSuffix)
	if !found {
		return domain.StreamRequest{}, false
	}
	*last = trimmed

	return domain.StreamRequest{
		Type:  contentType,
		ID:    id,
		Extra: parseExtra(extra),
	}, true
}

// parseExtra decodes the query-string style extra segment. Only the first
// value per key is kept.
func parseExtra(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil
	}
	extra := make(map[string]string, len(values))
	for key, list := range values {
		if len(list) > 0 {
			extra[key] = list[0]
		}
	}
	return extra
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
