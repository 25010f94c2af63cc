package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidID       = errors.New("primary key is required")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// RequestIdentity is the parsed form of a composite "key[:season[:episode]]" id.
// Season and Episode are zero when absent.
type RequestIdentity struct {
	ContentType ContentType
	PrimaryKey  string
	Season      int
	Episode     int
}

func (r RequestIdentity) HasEpisode() bool {
	return r.Season > 0 && r.Episode > 0
}

// MetadataKey is the key used for the metadata lookup: episodic requests are
// looked up at the episode level.
func (r RequestIdentity) MetadataKey() string {
	if r.HasEpisode() {
		return fmt.Sprintf("%s:%d:%d", r.PrimaryKey, r.Season, r.Episode)
	}
	return r.PrimaryKey
}

func ParseIdentity(contentType, id string) (RequestIdentity, error) {
	kind := ContentType(strings.ToLower(strings.TrimSpace(contentType)))
	if !kind.Valid() {
		return RequestIdentity{}, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	parts := strings.Split(id, ":")
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return RequestIdentity{}, ErrInvalidID
	}
	identity := RequestIdentity{ContentType: kind, PrimaryKey: key}
	if len(parts) > 1 {
		identity.Season = parsePositive(parts[1])
	}
	if len(parts) > 2 {
		identity.Episode = parsePositive(parts[2])
	}
	return identity, nil
}

// parsePositive returns 0 for anything that is not a positive integer.
func parsePositive(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0
	}
	return value
}
