package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/reelscore/cleaner"
	"github.com/use-agent/reelscore/models"
)

// imdbIDPattern matches a bare IMDb title id such as tt0113277.
var imdbIDPattern = regexp.MustCompile(`^tt\d{7,}$`)

// imdbTitleHref pulls the id out of a /title/<id>/ link.
var imdbTitleHref = regexp.MustCompile(`/title/(tt\d{7,})`)

var (
	imdbSearchLinks = cleaner.MustCompile(
		`.ipc-metadata-list-summary-item__tc a`,
		`a.ipc-metadata-list-summary-item__t`,
		`td.result_text a`,
	)
	imdbPlot = cleaner.MustCompile(
		`div.summary_text`,
		`[data-testid="plot"] [data-testid="plot-xl"]`,
		`[data-testid="plot"]`,
	)
	imdbGenres = cleaner.MustCompile(
		`[data-testid="genres"] a`,
		`.ipc-chip-list [role="presentation"]`,
	)
)

// IMDbDetails is what a title page yields.
type IMDbDetails struct {
	ID string

	// Name is the title IMDb lists for the movie.
	Name        string
	Rating      *float64
	Description string
	Genres      []string
	Link        string
}

// IMDb resolves titles through the IMDb find page and reads the title page.
type IMDb struct {
	BaseURL string
	Fetcher Fetcher
	Options Options
}

// NewIMDb creates an IMDb source rooted at baseURL.
func NewIMDb(baseURL string, f Fetcher, opts Options) *IMDb {
	return &IMDb{BaseURL: strings.TrimRight(baseURL, "/"), Fetcher: f, Options: opts}
}

// TitleURL returns the canonical title page for id.
func (s *IMDb) TitleURL(id string) string {
	return s.BaseURL + "/title/" + id + "/"
}

// Details resolves query to an IMDb id and parses its title page.
// A query that already is an id skips the search step.
func (s *IMDb) Details(ctx context.Context, query string) (*IMDbDetails, error) {
	id, err := s.ResolveID(ctx, query)
	if err != nil {
		return nil, err
	}

	link := s.TitleURL(id)
	doc, res, err := fetchDocument(ctx, s.Fetcher, s.Options, link)
	if err != nil {
		return nil, err
	}

	details, err := parseIMDbTitle(doc, res.HTML, link)
	if err != nil {
		return nil, err
	}
	details.ID = id
	return details, nil
}

// ResolveID returns the IMDb id of the first search result for query.
func (s *IMDb) ResolveID(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "imdb: empty title", nil)
	}
	if imdbIDPattern.MatchString(query) {
		return query, nil
	}

	searchURL := s.BaseURL + "/find/?s=tt&q=" + url.QueryEscape(query)
	doc, _, err := fetchDocument(ctx, s.Fetcher, s.Options, searchURL)
	if err != nil {
		return "", err
	}

	id := parseIMDbSearch(doc)
	if id == "" {
		return "", models.NewScrapeError(models.ErrCodeNotFound,
			fmt.Sprintf("imdb: no search result for %q", query), nil)
	}
	return id, nil
}

// parseIMDbSearch returns the id of the first result link, or "".
func parseIMDbSearch(doc *goquery.Document) string {
	for _, m := range imdbSearchLinks {
		var id string
		doc.FindMatcher(m).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if match := imdbTitleHref.FindStringSubmatch(href); match != nil {
				id = match[1]
				return false
			}
			return true
		})
		if id != "" {
			return id
		}
	}
	return ""
}

// parseIMDbTitle reads rating, description and genres from a title page.
//
// JSON-LD is authoritative. The description falls back to the plot block,
// then Open Graph, then a readability excerpt. Genres fall back to the
// genre chips.
func parseIMDbTitle(doc *goquery.Document, rawHTML, link string) (*IMDbDetails, error) {
	details := &IMDbDetails{Link: link}

	ld, hasLD := findMovieLD(doc)
	if hasLD {
		if v, ok := numberOf(ld.Get("aggregateRating.ratingValue")); ok {
			details.Rating = models.Float(v)
		}
		details.Name = cleaner.Text(stringOf(ld.Get("name")))
		details.Description = cleaner.Text(stringOf(ld.Get("description")))
		for _, g := range stringsOf(ld.Get("genre")) {
			details.Genres = append(details.Genres, cleaner.Text(g))
		}
	}

	if details.Description == "" {
		details.Description = imdbPlot.FirstText(doc.Selection)
	}
	if details.Description == "" {
		details.Description = cleaner.ExtractOpenGraph(doc).Description
	}
	if details.Description == "" {
		details.Description = cleaner.Excerpt(rawHTML, link)
	}

	if len(details.Genres) == 0 {
		for _, m := range imdbGenres {
			doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
				if g := cleaner.Text(s.Text()); g != "" {
					details.Genres = append(details.Genres, g)
				}
			})
			if len(details.Genres) > 0 {
				break
			}
		}
	}

	if !hasLD && details.Description == "" && len(details.Genres) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeParse,
			fmt.Sprintf("imdb: no movie data on %s", link), nil)
	}
	return details, nil
}
