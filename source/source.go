// Package source looks movies up on IMDb and Rotten Tomatoes.
//
// Each source turns a title into page URLs, fetches them through a Fetcher
// (normally an engine.Dispatcher) and parses the fields it knows about out
// of embedded JSON-LD first and the HTML second.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/reelscore/engine"
	"github.com/use-agent/reelscore/models"
)

// Fetcher retrieves one page. *engine.Dispatcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	return f(ctx, req)
}

// Options are shared by both sources.
type Options struct {
	// Timeout bounds each page fetch.
	Timeout time.Duration

	// Stealth asks browser engines to inject anti-detection scripts.
	Stealth bool
}

func fetchDocument(ctx context.Context, f Fetcher, opts Options, pageURL string) (*goquery.Document, *engine.FetchResult, error) {
	res, err := f.Fetch(ctx, &engine.FetchRequest{
		URL:     pageURL,
		Timeout: opts.Timeout,
		Stealth: opts.Stealth,
		Headers: map[string]string{"Accept-Language": "en-US,en;q=0.9"},
	})
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeParse, "parse page HTML", err)
	}
	return doc, res, nil
}
