package cleaner

import (
	"github.com/PuerkitoBio/goquery"
)

// OpenGraph holds the Open Graph meta tags movie pages publish.
type OpenGraph struct {
	Title       string
	Description string
	URL         string
}

// ExtractOpenGraph reads og:* and the plain description meta tags from doc.
// og:description wins over meta[name=description].
func ExtractOpenGraph(doc *goquery.Document) OpenGraph {
	og := OpenGraph{}

	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			og.Title = Text(content)
		case "og:description":
			og.Description = Text(content)
		case "og:url":
			og.URL = content
		}
	})

	if og.Description == "" {
		if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
			og.Description = Text(content)
		}
	}

	return og
}
