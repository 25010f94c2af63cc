package cinemeta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/fetch"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.Metadata
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.Metadata{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (domain.Metadata, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.entries[key]
	return meta, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, meta domain.Metadata, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = meta
	m.sets++
	return nil
}

func newTestClient(baseURL string, cache Cache) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		Cache:   cache,
		Fetcher: fetch.New(fetch.Config{
			Client:  &http.Client{},
			Timeout: time.Second,
			Retry:   fetch.RetryConfig{Retries: 0},
		}),
	})
}

func TestResolveMovie(t *testing.T) {
	var gotPath, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"meta":{"name":"Sample Movie","year":2020}}`))
	}))
	defer server.Close()

	identity, _ := domain.ParseIdentity("movie", "tt0000001")
	meta := newTestClient(server.URL, nil).Resolve(context.Background(), identity)
	if meta.IsAbsent() {
		t.Fatal("expected metadata")
	}
	if got := meta.MustGet(); got.Title != "Sample Movie" || got.Year != 2020 {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if gotPath != "/meta/movie/tt0000001.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAccept != "application/json" {
		t.Fatalf("unexpected accept %q", gotAccept)
	}
}

func TestResolveEpisodeUsesFullKey(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"meta":{"name":"Show"}}`))
	}))
	defer server.Close()

	identity, _ := domain.ParseIdentity("series", "tt0000002:1:2")
	newTestClient(server.URL, nil).Resolve(context.Background(), identity)
	if gotPath != "/meta/series/tt0000002:1:2.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestResolveYearSources(t *testing.T) {
	cases := []struct {
		name string
		body string
		want domain.Metadata
	}{
		{"numeric year", `{"meta":{"name":"A","year":1999}}`, domain.Metadata{Title: "A", Year: 1999}},
		{"string year range", `{"meta":{"name":"A","year":"2011–2013"}}`, domain.Metadata{Title: "A", Year: 2011}},
		{"release info", `{"meta":{"name":"A","releaseInfo":"2008-"}}`, domain.Metadata{Title: "A", Year: 2008}},
		{"title fallback", `{"meta":{"title":"B"}}`, domain.Metadata{Title: "B"}},
		{"unparseable", `{"meta":{"name":"C","releaseInfo":"soon"}}`, domain.Metadata{Title: "C"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			identity, _ := domain.ParseIdentity("movie", "tt1")
			meta := newTestClient(server.URL, nil).Resolve(context.Background(), identity)
			if meta.IsAbsent() {
				t.Fatal("expected metadata")
			}
			if got := meta.MustGet(); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestResolveFailuresYieldNone(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
		{"no meta", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{}`)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			cache := newMemoryCache()
			identity, _ := domain.ParseIdentity("movie", "tt1")
			meta := newTestClient(server.URL, cache).Resolve(context.Background(), identity)
			if meta.IsPresent() {
				t.Fatalf("expected none, got %+v", meta.MustGet())
			}
			if cache.sets != 0 {
				t.Fatal("failures must not be cached")
			}
		})
	}
}

func TestResolveUsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"meta": map[string]any{"name": "Cached", "year": 2001}})
	}))
	defer server.Close()

	cache := newMemoryCache()
	client := newTestClient(server.URL, cache)
	identity, _ := domain.ParseIdentity("movie", "tt9")

	first := client.Resolve(context.Background(), identity)
	second := client.Resolve(context.Background(), identity)
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
	if first.MustGet() != second.MustGet() {
		t.Fatalf("cached value differs: %+v vs %+v", first.MustGet(), second.MustGet())
	}
	if _, ok := cache.entries["movie:tt9"]; !ok {
		t.Fatalf("expected cache key movie:tt9, got %v", cache.entries)
	}
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]int{
		``:           0,
		`2020`:       2020,
		`"2020"`:     2020,
		`" 1994 "`:   1994,
		`"x2020"`:    0,
		`null`:       0,
		`{"a":1}`:    0,
		`"2011-now"`: 2011,
	}
	for raw, want := range cases {
		if got := leadingInt(json.RawMessage(raw)); got != want {
			t.Fatalf("leadingInt(%s) = %d, want %d", raw, got, want)
		}
	}
}
