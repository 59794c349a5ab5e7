// Package engine holds the page fetchers the movie sources load pages
// with, and the dispatcher that escalates between them.
package engine

import (
	"context"
	"net/url"
	"time"
)

// Engine names, as used by fetch modes and domain memory.
const (
	NameHTTP       = "http"
	NameRod        = "rod"
	NameRodStealth = "rod-stealth"
)

// Engine loads one page.
type Engine interface {
	Name() string
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest describes one page load. Timeout <= 0 leaves the deadline
// to ctx.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// Stealth asks browser engines to inject the stealth script.
	Stealth bool
}

// Host returns the hostname pacing and domain memory are keyed by. An
// unparsable URL is its own key.
func (r *FetchRequest) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Hostname() == "" {
		return r.URL
	}
	return u.Hostname()
}

// FetchResult is a loaded page.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string

	// EngineName is the engine that produced the page.
	EngineName string
}
