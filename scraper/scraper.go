package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/reelscore/config"
	"github.com/use-agent/reelscore/models"
)

// Browser manages the global browser lifecycle and the page pool.
// The browser process is only launched by the first Fetch, so runs that
// never need JavaScript rendering never start Chrome.
// It is safe for concurrent use.
type Browser struct {
	mu          sync.Mutex
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	blocked     resourceSet
	activePages atomic.Int32
}

// New returns an unlaunched Browser.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Browser {
	return &Browser{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		blocked:    parseBlocked(scraperCfg.BlockedResourceTypes),
	}
}

// ensure launches the browser on first use and returns it.
func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(b.browserCfg.Headless).
		NoSandbox(b.browserCfg.NoSandbox)

	if b.browserCfg.BrowserBin != "" {
		l = l.Bin(b.browserCfg.BrowserBin)
	}
	if b.browserCfg.Proxy != "" {
		l = l.Proxy(b.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	b.browser = browser
	b.pagePool = rod.NewPagePool(b.browserCfg.MaxPages)
	slog.Debug("page pool created", "maxPages", b.browserCfg.MaxPages)
	return browser, nil
}

// Launched reports whether the browser process is running.
func (b *Browser) Launched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser != nil
}

// Stats returns a snapshot of the browser's current state.
func (b *Browser) Stats() models.BrowserStats {
	return models.BrowserStats{
		Launched:    b.Launched(),
		MaxPages:    b.browserCfg.MaxPages,
		ActivePages: int(b.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// It is a no-op if the browser was never launched.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return
	}
	slog.Debug("browser shutting down: draining page pool")
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	b.browser = nil
	slog.Info("browser closed")
}
