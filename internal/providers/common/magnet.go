package common

import "strings"

// MagnetPrefix is the href prefix that marks a magnet link in scraped markup.
const MagnetPrefix = "magnet:?xt="

func IsMagnet(href string) bool {
	return strings.HasPrefix(href, "magnet:?")
}
