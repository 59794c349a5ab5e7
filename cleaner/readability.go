package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Excerpt runs Mozilla Readability over rawHTML and returns its excerpt
// (the page's lead paragraph or meta description). It is the last resort
// when no structured description was found. Returns "" on any failure.
func Excerpt(rawHTML string, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return ""
	}

	return Text(article.Excerpt)
}
