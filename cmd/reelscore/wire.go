package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/reelscore/cache"
	"github.com/use-agent/reelscore/config"
	"github.com/use-agent/reelscore/engine"
	"github.com/use-agent/reelscore/pipeline"
	"github.com/use-agent/reelscore/scraper"
	"github.com/use-agent/reelscore/source"
	"github.com/use-agent/reelscore/store"
)

// domainMemoryTTL is how long a successful engine is remembered per host.
const domainMemoryTTL = 24 * time.Hour

// app bundles the long-lived components shared by the commands.
type app struct {
	cfg     *config.Config
	browser *scraper.Browser
	runner  *pipeline.Runner
	cache   *cache.Cache
	store   *store.Store
}

// engineSet holds one instance of every fetch engine. Both sources share
// it so the page delay and domain memory hold across them.
type engineSet struct {
	http       engine.Engine
	rod        engine.Engine
	rodStealth engine.Engine
	memory     *engine.DomainMemory
	pacer      *engine.Pacer
}

func newEngineSet(cfg *config.Config, browser *scraper.Browser) *engineSet {
	render := func(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
		res, err := browser.Fetch(ctx, req.URL, req.Headers, req.Stealth)
		if err != nil {
			return nil, err
		}
		return &engine.FetchResult{
			HTML:       res.RawHTML,
			Title:      res.Title,
			StatusCode: res.StatusCode,
			FinalURL:   res.FinalURL,
		}, nil
	}
	return &engineSet{
		http:       engine.NewHTTPEngine(cfg.Browser.Proxy),
		rod:        engine.NewRodEngine(render, false),
		rodStealth: engine.NewRodEngine(render, true),
		memory:     engine.NewDomainMemory(domainMemoryTTL),
		pacer:      engine.NewPacer(cfg.Scraper.PageDelay),
	}
}

// engines returns the escalation order for a fetch mode.
func (s *engineSet) engines(mode string, stealth bool) []engine.Engine {
	switch mode {
	case config.FetchModeHTTP:
		return []engine.Engine{s.http}
	case config.FetchModeBrowser:
		if stealth {
			return []engine.Engine{s.rodStealth}
		}
		return []engine.Engine{s.rod}
	default:
		return []engine.Engine{s.http, s.rod, s.rodStealth}
	}
}

func (s *engineSet) dispatcher(mode string, stealth bool) *engine.Dispatcher {
	return engine.NewDispatcher(s.engines(mode, stealth), s.memory, s.pacer)
}

// newApp wires config to sources and the pipeline. cacheRetention > 0
// always attaches a cache; otherwise one is attached only when
// cache.ttl is set.
func newApp(cfg *config.Config, cacheRetention time.Duration) (*app, error) {
	a := &app{
		cfg:     cfg,
		browser: scraper.New(cfg.Browser, cfg.Scraper),
	}

	engines := newEngineSet(cfg, a.browser)
	opts := source.Options{Timeout: cfg.Scraper.Timeout, Stealth: cfg.Scraper.Stealth}

	imdbDispatcher := engines.dispatcher(cfg.Sources.IMDbFetchMode, cfg.Scraper.Stealth)
	rtDispatcher := engines.dispatcher(cfg.Sources.RTFetchMode, cfg.Scraper.Stealth)
	slog.Debug("fetch engines",
		"imdb", imdbDispatcher.Engines(),
		"rt", rtDispatcher.Engines(),
		"page_delay", cfg.Scraper.PageDelay,
	)

	a.runner = pipeline.New(
		source.NewIMDb(cfg.Sources.IMDbBaseURL, imdbDispatcher, opts),
		source.NewRottenTomatoes(cfg.Sources.RTBaseURL, rtDispatcher, opts),
	)

	switch {
	case cacheRetention > 0:
		a.cache = cache.New(cfg.Cache.MaxEntries, cacheRetention)
		a.runner.WithCache(a.cache, cfg.Cache.TTL)
	case cfg.Cache.TTL > 0:
		a.cache = cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		a.runner.WithCache(a.cache, cfg.Cache.TTL)
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.store = st
	}
	return a, nil
}

// Close releases the browser, the cache and the store.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("closing run history failed", "error", err)
		}
	}
	if a.browser != nil {
		a.browser.Close()
	}
}
