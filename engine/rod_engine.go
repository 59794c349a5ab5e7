package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/reelscore/models"
)

// PageFunc renders a page in the shared browser. cmd/reelscore wires it
// to scraper.Browser.Fetch so engine stays free of rod.
type PageFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine loads pages in the browser. The stealth variant always
// injects the stealth script, whatever the request asks for.
type RodEngine struct {
	load    PageFunc
	stealth bool
}

// NewRodEngine creates the "rod" engine, or "rod-stealth" when stealth is
// set.
func NewRodEngine(load PageFunc, stealth bool) *RodEngine {
	return &RodEngine{load: load, stealth: stealth}
}

func (e *RodEngine) Name() string {
	if e.stealth {
		return NameRodStealth
	}
	return NameRod
}

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.load == nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash,
			e.Name()+": no browser configured", nil)
	}

	r := *req
	r.Stealth = r.Stealth || e.stealth

	result, err := e.load(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	if result == nil || strings.TrimSpace(result.HTML) == "" {
		return nil, models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("%s: empty page for %s", e.Name(), req.URL), nil)
	}
	result.EngineName = e.Name()
	return result, nil
}
