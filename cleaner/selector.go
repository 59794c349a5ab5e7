package cleaner

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Selectors is an ordered fallback list of compiled CSS selectors.
// Page structures change often, so each field is looked up through several
// candidates and the first non-empty match wins.
type Selectors []cascadia.Selector

// MustCompile compiles every selector and panics on a syntax error. It is
// meant for package-level selector tables.
func MustCompile(selectors ...string) Selectors {
	out := make(Selectors, len(selectors))
	for i, s := range selectors {
		out[i] = cascadia.MustCompile(s)
	}
	return out
}

// FirstText returns the cleaned text of the first selector that matches
// a non-empty element under root.
func (s Selectors) FirstText(root *goquery.Selection) string {
	for _, m := range s {
		if text := Text(root.FindMatcher(m).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// FirstAttr returns the first non-empty value of attr among the elements
// matched by the selectors, in order.
func (s Selectors) FirstAttr(root *goquery.Selection, attr string) string {
	for _, m := range s {
		if v, ok := root.FindMatcher(m).First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}
