package exto

import (
	"torrentstream/streamresolver/internal/domain"
	"torrentstream/streamresolver/internal/providers/common"
)

// rowSelector matches the containers a result row is rendered in.
const rowSelector = "tr, .search-result, .result, li, .row, .card, .table, .torrent"

// Enrich labels each of links with the quality and size found in the row that
// holds its first anchor in doc. Links are never dropped; a link without a
// row, or whose row matches no pattern, comes back unlabeled.
func Enrich(doc *common.Document, links []string) []domain.LabeledLink {
	wanted := make(map[string]struct{}, len(links))
	for _, link := range links {
		wanted[link] = struct{}{}
	}

	labels := make(map[string]common.Labels, len(links))
	for _, anchor := range doc.LinksWithPrefix(common.MagnetPrefix) {
		href := anchor.Href()
		if _, ok := wanted[href]; !ok {
			continue
		}
		if _, done := labels[href]; done {
			continue
		}
		text, _ := anchor.ClosestText(rowSelector)
		labels[href] = common.Classify(text)
	}

	out := make([]domain.LabeledLink, 0, len(links))
	for _, link := range links {
		found := labels[link]
		out = append(out, domain.LabeledLink{
			URL:     link,
			Quality: found.Quality,
			Size:    found.Size,
		})
	}
	return out
}
