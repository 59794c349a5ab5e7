package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/reelscore/models"
)

// Fetch loads targetURL in a pooled tab and returns the rendered HTML.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard     – hard deadline on the entire operation
//  2. Acquire page      – borrow a tab from the pool (or create one)
//  3. DEFER: cleanup    – about:blank + return to pool
//  4. Stealth injection – must precede navigation
//  5. Hijack mount      – must precede navigation
//  6. Navigate + wait   – load event, then DOM stable
//  7. Extract           – status, HTML, title, final URL
func (b *Browser) Fetch(ctx context.Context, targetURL string, headers map[string]string, useStealth bool) (*ScrapeResult, error) {
	browser, err := b.ensure()
	if err != nil {
		return nil, err
	}

	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := b.scraperCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 2. Acquire page from pool ─────────────────────────────────────
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	page, acquireErr := b.pagePool.Get(func() (*rod.Page, error) {
		return browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// ── 3. Cleanup uses the page without the request context so it
	// still runs after a timeout.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if useStealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	// ── 5. Mount hijack router ────────────────────────────────────────
	if router := blockResources(page, b.blocked); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Navigate + wait ────────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(targetURL); err != nil {
		return nil, models.CategorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		slog.Debug("WaitLoad did not complete, proceeding with current DOM", "url", targetURL, "error", err)
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// ── 7. Extract ────────────────────────────────────────────────────
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}
	if statusCode == http.StatusNotFound {
		return nil, models.NewScrapeError(models.ErrCodeNotFound,
			fmt.Sprintf("browser: HTTP 404 for %s", targetURL), nil)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, models.CategorizeError(htmlErr, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}

	return &ScrapeResult{
		RawHTML:    rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
