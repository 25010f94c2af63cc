package resolve

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"torrentstream/streamresolver/internal/domain"
)

const (
	MaxStreams     = 20
	titleSeparator = " • "
)

// Normalize maps labeled links onto output records, keeping at most
// MaxStreams in discovery order.
func Normalize(links []domain.LabeledLink) []domain.Stream {
	if len(links) > MaxStreams {
		links = links[:MaxStreams]
	}
	return lo.Map(links, func(link domain.LabeledLink, index int) domain.Stream {
		return domain.Stream{
			Title: displayTitle(link, index),
			URL:   link.URL,
			Hints: map[string]any{},
		}
	})
}

func displayTitle(link domain.LabeledLink, index int) string {
	parts := make([]string, 0, 2)
	if link.Quality != "" {
		parts = append(parts, string(link.Quality))
	}
	if link.Size != "" {
		parts = append(parts, link.Size)
	}
	if len(parts) == 0 {
		return "Magnet #" + strconv.Itoa(index+1)
	}
	return strings.Join(parts, titleSeparator)
}
