package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/mo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/metrics"
	"torrentstream/streamresolver/internal/telemetry"
)

type MetadataResolver interface {
	Resolve(ctx context.Context, identity domain.RequestIdentity) mo.Option[domain.Metadata]
}

type Searcher interface {
	Search(ctx context.Context, query string) []domain.LabeledLink
}

type Fallback interface {
	Streams(ctx context.Context, contentType domain.ContentType, primaryKey string) []domain.Stream
}

const (
	sourcePrimary  = "primary"
	sourceFallback = "fallback"
	sourceEmpty    = "empty"
	sourceInvalid  = "invalid"
)

type Option func(*Service)

// WithFallback enables the secondary provider consulted when search is empty.
func WithFallback(fallback Fallback) Option {
	return func(s *Service) {
		s.fallback = fallback
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service runs the stream-resolution pipeline.
type Service struct {
	metadata MetadataResolver
	searcher Searcher
	fallback Fallback
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(metadata MetadataResolver, searcher Searcher, opts ...Option) *Service {
	s := &Service{
		metadata: metadata,
		searcher: searcher,
		logger:   slog.Default(),
		tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve never fails: every stage failure degrades to an empty or partial
// outcome, and the streams slice is never nil.
func (s *Service) Resolve(ctx context.Context, request domain.StreamRequest) domain.StreamResponse {
	startedAt := time.Now()
	ctx, span := s.tracer.Start(ctx, "resolve.streams", trace.WithAttributes(
		attribute.String("stream.type", request.Type),
		attribute.String("stream.id", request.ID),
	))
	defer span.End()

	identity, err := domain.ParseIdentity(request.Type, request.ID)
	if err != nil {
		s.logger.Warn("stream request rejected",
			slog.String("type", request.Type),
			slog.String("id", request.ID),
			slog.String("error", err.Error()),
		)
		return s.finish(span, request.Type, sourceInvalid, domain.EmptyResponse(), startedAt)
	}
	contentType := string(identity.ContentType)

	metadata := s.resolveMetadata(ctx, identity)
	query := BuildQuery(identity, metadata)
	if query == "" {
		s.logger.Warn("search query empty", slog.String("type", contentType), slog.String("key", identity.PrimaryKey))
	}

	links := s.search(ctx, query)
	if len(links) > 0 {
		response := domain.StreamResponse{Streams: Normalize(links)}
		return s.finish(span, contentType, sourcePrimary, response, startedAt)
	}

	if s.fallback != nil {
		if streams := s.fallbackStreams(ctx, identity); len(streams) > 0 {
			return s.finish(span, contentType, sourceFallback, domain.StreamResponse{Streams: streams}, startedAt)
		}
	}
	return s.finish(span, contentType, sourceEmpty, domain.EmptyResponse(), startedAt)
}

func (s *Service) resolveMetadata(ctx context.Context, identity domain.RequestIdentity) mo.Option[domain.Metadata] {
	ctx, span := s.tracer.Start(ctx, "resolve.metadata")
	defer span.End()

	metadata := s.metadata.Resolve(ctx, identity)
	span.SetAttributes(attribute.Bool("metadata.found", metadata.IsPresent()))
	return metadata
}

func (s *Service) search(ctx context.Context, query string) []domain.LabeledLink {
	if query == "" {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "resolve.search", trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	links := s.searcher.Search(ctx, query)
	span.SetAttributes(attribute.Int("search.links", len(links)))
	return links
}

func (s *Service) fallbackStreams(ctx context.Context, identity domain.RequestIdentity) []domain.Stream {
	ctx, span := s.tracer.Start(ctx, "resolve.fallback")
	defer span.End()

	streams := s.fallback.Streams(ctx, identity.ContentType, identity.PrimaryKey)
	span.SetAttributes(attribute.Int("fallback.streams", len(streams)))
	return streams
}

func (s *Service) finish(span trace.Span, contentType, source string, response domain.StreamResponse, startedAt time.Time) domain.StreamResponse {
	if response.Streams == nil {
		response.Streams = []domain.Stream{}
	}
	span.SetAttributes(
		attribute.String("resolve.source", source),
		attribute.Int("resolve.streams", len(response.Streams)),
	)
	metrics.ResolutionsTotal.WithLabelValues(metricType(contentType), source).Inc()
	s.logger.Info("streams resolved",
		slog.String("type", contentType),
		slog.String("source", source),
		slog.Int("streams", len(response.Streams)),
		slog.Int64("elapsedMs", time.Since(startedAt).Milliseconds()),
	)
	return response
}

// metricType keeps label cardinality bounded for rejected requests.
func metricType(contentType string) string {
	if domain.ContentType(contentType).Valid() {
		return contentType
	}
	return "other"
}
