package domain

import (
	"bytes"
	"encoding/json"
)

type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeMovie || t == ContentTypeSeries
}

// StreamRequest is the inbound shape handed over by the transport layer.
type StreamRequest struct {
	Type  string
	ID    string
	Extra map[string]string
}

type Metadata struct {
	Title string
	Year  int
}

type Quality string

const (
	Quality2160p Quality = "2160P"
	Quality1080p Quality = "1080P"
	Quality720p  Quality = "720P"
	Quality480p  Quality = "480P"
)

// LabeledLink is a magnet link plus whatever labels could be read from the
// markup around it. Empty fields mean nothing matched.
type LabeledLink struct {
	URL     string
	Quality Quality
	Size    string
}

// Stream is the only record that crosses the output boundary. Records that
// came from an upstream addon keep their original bytes and are re-emitted
// unchanged.
type Stream struct {
	Title string
	URL   string
	Hints map[string]any

	raw json.RawMessage
}

type streamWire struct {
	Title string         `json:"title"`
	URL   string         `json:"url"`
	Hints map[string]any `json:"behaviorHints"`
}

func (s Stream) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	hints := s.Hints
	if hints == nil {
		hints = map[string]any{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(streamWire{Title: s.Title, URL: s.URL, Hints: hints}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (s *Stream) UnmarshalJSON(data []byte) error {
	*s = RawStream(data)
	return nil
}

// RawStream wraps an upstream record so it is re-emitted unchanged. Title,
// URL and Hints are filled when the record carries them with the expected
// types; anything else is left to the raw bytes.
func RawStream(raw json.RawMessage) Stream {
	stream := Stream{raw: append(json.RawMessage(nil), bytes.TrimSpace(raw)...)}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return stream
	}
	_ = json.Unmarshal(fields["title"], &stream.Title)
	_ = json.Unmarshal(fields["url"], &stream.URL)
	var hints map[string]any
	if err := json.Unmarshal(fields["behaviorHints"], &hints); err == nil {
		stream.Hints = hints
	}
	return stream
}

// Raw returns the upstream bytes of a passthrough record, or nil.
func (s Stream) Raw() json.RawMessage {
	return s.raw
}

type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// EmptyResponse is the universal "nothing found" outcome.
func EmptyResponse() StreamResponse {
	return StreamResponse{Streams: []Stream{}}
}
