package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"

	"github.com/use-agent/reelscore/cleaner"
	"github.com/use-agent/reelscore/models"
)

var (
	rtSearchRows = cleaner.MustCompile(
		`search-page-result[type="movie"] search-page-media-row`,
		`search-page-media-row`,
	)
	rtRowLink = cleaner.MustCompile(
		`a[data-qa="info-name"]`,
		`a[slot="title"]`,
		`a[href*="/m/"]`,
	)
	rtScoreText = cleaner.MustCompile(
		`rt-text[slot="criticsScore"]`,
		`rt-button[slot="criticsScore"] rt-text`,
		`[data-qa="tomatometer"]`,
	)
	rtScoreAttr = cleaner.MustCompile(
		`score-board`,
		`score-board-deprecated`,
	)
	rtSynopsis = cleaner.MustCompile(
		`[data-qa="synopsis-value"]`,
		`[data-qa="movie-info-synopsis"]`,
		`#movieSynopsis`,
	)
)

// RTDetails is what a Rotten Tomatoes movie page yields.
type RTDetails struct {
	// Tomatometer is the critics score percentage.
	Tomatometer *int
	Synopsis    string

	// Link is the movie page that was read, or the slug guess when the
	// search did not find it.
	Link string
}

// RottenTomatoes finds movies through the site search and reads the
// scorecard of the movie page.
type RottenTomatoes struct {
	BaseURL string
	Fetcher Fetcher
	Options Options
}

// NewRottenTomatoes creates a Rotten Tomatoes source rooted at baseURL.
func NewRottenTomatoes(baseURL string, f Fetcher, opts Options) *RottenTomatoes {
	return &RottenTomatoes{BaseURL: strings.TrimRight(baseURL, "/"), Fetcher: f, Options: opts}
}

// SlugURL is the movie page URL the site uses for most titles.
func (s *RottenTomatoes) SlugURL(title string) string {
	return s.BaseURL + "/m/" + Slug(title)
}

// Lookup finds title and reads its Tomatometer score and synopsis.
//
// The returned details always carry a Link, even together with an error,
// so a report can point at the page that was tried.
func (s *RottenTomatoes) Lookup(ctx context.Context, title string) (*RTDetails, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "rottentomatoes: empty title", nil)
	}

	// 1. Search; a failed search falls back to the slug guess.
	pageURL, rowScore, err := s.search(ctx, title)
	if err != nil {
		if ctx.Err() != nil {
			return &RTDetails{Link: s.SlugURL(title)}, err
		}
		slog.Debug("rottentomatoes: search failed, trying slug", "title", title, "error", err)
	}
	if pageURL == "" {
		pageURL = s.SlugURL(title)
	}
	details := &RTDetails{Link: pageURL}

	// 2. Movie page.
	doc, res, err := fetchDocument(ctx, s.Fetcher, s.Options, pageURL)
	if err != nil {
		if rowScore != nil {
			details.Tomatometer = rowScore
			return details, nil
		}
		return details, err
	}
	if res.FinalURL != "" {
		details.Link = res.FinalURL
	}

	// 3. Parse.
	parseRTPage(doc, details)
	if details.Tomatometer == nil {
		details.Tomatometer = rowScore
	}
	if details.Tomatometer == nil && details.Synopsis == "" {
		return details, models.NewScrapeError(models.ErrCodeParse,
			fmt.Sprintf("rottentomatoes: no score or synopsis on %s", pageURL), nil)
	}
	return details, nil
}

// search returns the best matching movie page and the score shown in the
// result row, if any.
func (s *RottenTomatoes) search(ctx context.Context, title string) (string, *int, error) {
	searchURL := s.BaseURL + "/search?search=" + url.QueryEscape(title)
	doc, _, err := fetchDocument(ctx, s.Fetcher, s.Options, searchURL)
	if err != nil {
		return "", nil, err
	}
	href, score := parseRTSearch(doc, title)
	if href == "" {
		return "", score, nil
	}
	return s.resolve(href), score, nil
}

// resolve turns a relative search result link into an absolute URL.
func (s *RottenTomatoes) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(s.BaseURL + "/")
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// parseRTSearch picks the row whose title equals title (case-insensitively),
// otherwise the first movie row.
func parseRTSearch(doc *goquery.Document, title string) (string, *int) {
	var rows *goquery.Selection
	for _, m := range rtSearchRows {
		if rows = doc.FindMatcher(m); rows.Length() > 0 {
			break
		}
	}
	if rows == nil || rows.Length() == 0 {
		return "", nil
	}

	pick := rows.First()
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.EqualFold(rtRowLink.FirstText(row), title) {
			pick = row
			return false
		}
		return true
	})

	var score *int
	if v, ok := pick.Attr("tomatometerscore"); ok {
		if n, ok := parseNumber(v); ok {
			score = models.Int(int(math.Round(n)))
		}
	}
	return rtRowLink.FirstAttr(pick, "href"), score
}

// parseRTPage fills the score and synopsis of details.
//
// Score order: scorecard JSON, JSON-LD aggregateRating, the critics score
// text, then the legacy score-board attribute. Synopsis order: the synopsis
// blocks, JSON-LD description, then og:description.
func parseRTPage(doc *goquery.Document, details *RTDetails) {
	ld, hasLD := findMovieLD(doc)

	score := func(v float64) *int { return models.Int(int(math.Round(v))) }

	if raw := strings.TrimSpace(doc.Find(`script#media-scorecard-json`).First().Text()); raw != "" && json.Valid([]byte(raw)) {
		if v, ok := numberOf(gson.NewFrom(raw).Get("criticsScore.score")); ok {
			details.Tomatometer = score(v)
		}
	}
	if details.Tomatometer == nil && hasLD {
		if v, ok := numberOf(ld.Get("aggregateRating.ratingValue")); ok {
			details.Tomatometer = score(v)
		}
	}
	if details.Tomatometer == nil {
		if v, ok := parseNumber(rtScoreText.FirstText(doc.Selection)); ok {
			details.Tomatometer = score(v)
		}
	}
	if details.Tomatometer == nil {
		if v, ok := parseNumber(rtScoreAttr.FirstAttr(doc.Selection, "tomatometerscore")); ok {
			details.Tomatometer = score(v)
		}
	}

	details.Synopsis = rtSynopsis.FirstText(doc.Selection)
	if details.Synopsis == "" && hasLD {
		details.Synopsis = cleaner.Text(stringOf(ld.Get("description")))
	}
	if details.Synopsis == "" {
		details.Synopsis = cleaner.ExtractOpenGraph(doc).Description
	}
}
