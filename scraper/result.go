package scraper

// ScrapeResult is what a browser page load produces.
type ScrapeResult struct {
	// RawHTML is the rendered page HTML.
	RawHTML string

	// Title is document.title.
	Title string

	// StatusCode is the navigation response status (0 when unknown).
	StatusCode int

	// FinalURL is window.location.href after redirects.
	FinalURL string
}
