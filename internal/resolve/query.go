package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"torrentstream/streamresolver/internal/domain"
)

// BuildQuery turns metadata into a search-surface query. Without metadata the
// query is empty and the search stage is skipped.
func BuildQuery(identity domain.RequestIdentity, metadata mo.Option[domain.Metadata]) string {
	meta, ok := metadata.Get()
	if !ok {
		return ""
	}
	if identity.ContentType == domain.ContentTypeSeries && identity.HasEpisode() {
		return fmt.Sprintf("%s s%02de%02d", meta.Title, identity.Season, identity.Episode)
	}
	year := ""
	if meta.Year > 0 {
		year = strconv.Itoa(meta.Year)
	}
	return strings.TrimSpace(meta.Title + " " + year)
}
