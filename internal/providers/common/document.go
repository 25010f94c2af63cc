package common

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page exposing the few queries the scrapers need.
type Document struct {
	doc *goquery.Document
}

// Link is an anchor element of a Document.
type Link struct {
	sel *goquery.Selection
}

func ParseDocument(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// LinksWithPrefix returns anchors whose href starts with prefix, in document order.
func (d *Document) LinksWithPrefix(prefix string) []Link {
	var links []Link
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, prefix) {
			links = append(links, Link{sel: s})
		}
	})
	return links
}

// Title returns the text of the page's <title> element.
func (d *Document) Title() string {
	return d.doc.Find("title").First().Text()
}

func (l Link) Href() string {
	href, _ := l.sel.Attr("href")
	return href
}

// ClosestText returns the flattened text of the nearest element matching
// selector, starting at the link itself. ok is false when there is none.
func (l Link) ClosestText(selector string) (text string, ok bool) {
	row := l.sel.Closest(selector)
	if row.Length() == 0 {
		return "", false
	}
	return CollapseWhitespace(row.First().Text()), true
}
