package resolve

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/samber/mo"

	"torrentstream/streamresolver/internal/domain"
)

type fakeMetadata struct {
	meta  mo.Option[domain.Metadata]
	calls []domain.RequestIdentity
}

func (f *fakeMetadata) Resolve(_ context.Context, identity domain.RequestIdentity) mo.Option[domain.Metadata] {
	f.calls = append(f.calls, identity)
	return f.meta
}

type fakeSearcher struct {
	links   []domain.LabeledLink
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) []domain.LabeledLink {
	f.queries = append(f.queries, query)
	return f.links
}

type fakeFallback struct {
	streams []domain.Stream
	calls   []string
}

func (f *fakeFallback) Streams(_ context.Context, contentType domain.ContentType, primaryKey string) []domain.Stream {
	f.calls = append(f.calls, string(contentType)+"/"+primaryKey)
	return f.streams
}

func TestResolveInvalidIdentifierSkipsStages(t *testing.T) {
	metadata := &fakeMetadata{meta: mo.Some(domain.Metadata{Title: "x"})}
	searcher := &fakeSearcher{}
	fallback := &fakeFallback{}
	service := NewService(metadata, searcher, WithFallback(fallback))

	for _, request := range []domain.StreamRequest{
		{Type: "movie", ID: ""},
		{Type: "movie", ID: ":1:2"},
		{Type: "channel", ID: "tt1"},
	} {
		response := service.Resolve(context.Background(), request)
		if response.Streams == nil || len(response.Streams) != 0 {
			t.Fatalf("expected empty non-nil streams for %+v, got %v", request, response.Streams)
		}
	}
	if len(metadata.calls)+len(searcher.queries)+len(fallback.calls) != 0 {
		t.Fatal("no stage may run for a rejected identifier")
	}
}

func TestResolvePrimaryResults(t *testing.T) {
	metadata := &fakeMetadata{meta: mo.Some(domain.Metadata{Title: "Show", Year: 2011})}
	searcher := &fakeSearcher{links: []domain.LabeledLink{{URL: "magnet:?xt=a", Quality: domain.Quality1080p}}}
	fallback := &fakeFallback{streams: []domain.Stream{{Title: "fb", URL: "magnet:?xt=fb"}}}
	service := NewService(metadata, searcher, WithFallback(fallback))

	response := service.Resolve(context.Background(), domain.StreamRequest{Type: "series", ID: "tt2:3:4"})
	if len(response.Streams) != 1 || response.Streams[0].Title != "1080P" {
		t.Fatalf("unexpected streams: %+v", response.Streams)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "Show s03e04" {
		t.Fatalf("unexpected queries: %v", searcher.queries)
	}
	if len(metadata.calls) != 1 || metadata.calls[0].MetadataKey() != "tt2:3:4" {
		t.Fatalf("unexpected metadata calls: %+v", metadata.calls)
	}
	if len(fallback.calls) != 0 {
		t.Fatal("fallback must not run when search found links")
	}
}

func TestResolveFallbackWhenSearchEmpty(t *testing.T) {
	metadata := &fakeMetadata{meta: mo.Some(domain.Metadata{Title: "Sample", Year: 2020})}
	searcher := &fakeSearcher{}
	fallback := &fakeFallback{streams: []domain.Stream{{Title: "a", URL: "u1"}, {Title: "b", URL: "u2"}}}
	service := NewService(metadata, searcher, WithFallback(fallback))

	response := service.Resolve(context.Background(), domain.StreamRequest{Type: "series", ID: "tt5:1:2"})
	if len(response.Streams) != 2 {
		t.Fatalf("expected fallback streams, got %+v", response.Streams)
	}
	if len(fallback.calls) != 1 || fallback.calls[0] != "series/tt5" {
		t.Fatalf("fallback must be keyed by the primary key, got %v", fallback.calls)
	}
}

func TestResolveNoMetadataSkipsSearch(t *testing.T) {
	metadata := &fakeMetadata{meta: mo.None[domain.Metadata]()}
	searcher := &fakeSearcher{links: []domain.LabeledLink{{URL: "magnet:?xt=a"}}}
	fallback := &fakeFallback{}
	service := NewService(metadata, searcher, WithFallback(fallback))

	response := service.Resolve(context.Background(), domain.StreamRequest{Type: "movie", ID: "tt0000000"})
	if len(response.Streams) != 0 {
		t.Fatalf("expected empty streams, got %+v", response.Streams)
	}
	if len(searcher.queries) != 0 {
		t.Fatal("empty query must not reach the search surface")
	}
	if len(fallback.calls) != 1 {
		t.Fatal("fallback runs whenever search produced nothing")
	}
}

func TestResolveFallbackDisabled(t *testing.T) {
	service := NewService(&fakeMetadata{meta: mo.None[domain.Metadata]()}, &fakeSearcher{})

	response := service.Resolve(context.Background(), domain.StreamRequest{Type: "movie", ID: "tt0000000"})
	encoded, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"streams":[]}` {
		t.Fatalf("unexpected body %s", encoded)
	}
}
