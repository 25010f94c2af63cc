package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		id          string
		want        RequestIdentity
	}{
		{"movie", "movie", "tt1234567", RequestIdentity{ContentType: ContentTypeMovie, PrimaryKey: "tt1234567"}},
		{"episode", "series", "tt1:3:9", RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Season: 3, Episode: 9}},
		{"season only", "series", "tt1:3", RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Season: 3}},
		{"non numeric season", "series", "tt1:abc:9", RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Episode: 9}},
		{"zero episode", "series", "tt1:2:0", RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Season: 2}},
		{"type case", " Movie ", "tt9", RequestIdentity{ContentType: ContentTypeMovie, PrimaryKey: "tt9"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseIdentity(tc.contentType, tc.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ParseIdentity(%q, %q) = %+v, want %+v", tc.contentType, tc.id, got, tc.want)
			}
		})
	}
}

func TestParseIdentityRejectsMissingKey(t *testing.T) {
	for _, id := range []string{"", ":1:2", "  :3"} {
		if _, err := ParseIdentity("series", id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestParseIdentityRejectsUnknownType(t *testing.T) {
	if _, err := ParseIdentity("channel", "tt1"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestMetadataKey(t *testing.T) {
	episode := RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Season: 3, Episode: 9}
	if got := episode.MetadataKey(); got != "tt1:3:9" {
		t.Fatalf("unexpected episode key %q", got)
	}
	partial := RequestIdentity{ContentType: ContentTypeSeries, PrimaryKey: "tt1", Season: 3}
	if got := partial.MetadataKey(); got != "tt1" {
		t.Fatalf("unexpected partial key %q", got)
	}
}

func TestStreamMarshalNormalized(t *testing.T) {
	data, err := json.Marshal(Stream{Title: "1080P", URL: "magnet:?xt=a"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"title":"1080P","url":"magnet:?xt=a","behaviorHints":{}}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestStreamPassthroughKeepsUpstreamBytes(t *testing.T) {
	payload := `{"streams":[{"name":"Torrentio","title":"x","infoHash":"abc","fileIdx":2}]}`
	var response StreamResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(response.Streams) != 1 || response.Streams[0].Title != "x" {
		t.Fatalf("unexpected decode: %+v", response.Streams)
	}
	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("passthrough altered record:\n got %s\nwant %s", data, payload)
	}
}

func TestRawStreamIsBestEffort(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		title string
		hints bool
	}{
		{"typed fields", `{"title":"x","url":"u","behaviorHints":{"bingeGroup":"g"}}`, "x", true},
		{"hints of another type", `{"title":"x","behaviorHints":"weird"}`, "x", false},
		{"title of another type", `{"title":7}`, "", false},
		{"not an object", `"just a string"`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stream := RawStream(json.RawMessage(tc.raw))
			if string(stream.Raw()) != tc.raw {
				t.Fatalf("raw bytes changed: %s", stream.Raw())
			}
			if stream.Title != tc.title || (stream.Hints != nil) != tc.hints {
				t.Fatalf("unexpected fields: %+v", stream)
			}
			data, err := json.Marshal(stream)
			if err != nil || string(data) != tc.raw {
				t.Fatalf("marshal = %s, %v", data, err)
			}
		})
	}
}
