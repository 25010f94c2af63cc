package common

import (
	"regexp"
	"strings"

	"torrentstream/streamresolver/internal/domain"
)

var (
	qualityPattern = regexp.MustCompile(`(?i)(2160p|4k|1080p|720p|480p)`)
	sizePattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s?(?:GB|MB))`)
)

// Labels are the attributes that can be read from the text around a link.
// Empty fields mean the pattern did not match.
type Labels struct {
	Quality domain.Quality
	Size    string
}

// Classify applies the quality and size patterns to text independently.
func Classify(text string) Labels {
	var labels Labels
	if match := qualityPattern.FindStringSubmatch(text); len(match) > 1 {
		labels.Quality = normalizeQuality(match[1])
	}
	if match := sizePattern.FindStringSubmatch(text); len(match) > 1 {
		labels.Size = strings.ToUpper(match[1])
	}
	return labels
}

func normalizeQuality(raw string) domain.Quality {
	value := strings.ToUpper(raw)
	if value == "4K" {
		return domain.Quality2160p
	}
	return domain.Quality(value)
}
