// Package pipeline runs the per-title lookup against both sources and
// accumulates the report.
package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/use-agent/reelscore/cache"
	"github.com/use-agent/reelscore/models"
	"github.com/use-agent/reelscore/source"
)

// IMDbSource looks a title up on IMDb. *source.IMDb satisfies it.
type IMDbSource interface {
	Details(ctx context.Context, query string) (*source.IMDbDetails, error)
}

// RTSource looks a title up on Rotten Tomatoes. *source.RottenTomatoes
// satisfies it.
type RTSource interface {
	Lookup(ctx context.Context, title string) (*source.RTDetails, error)
}

// Outcome reports how one lookup went per source.
type Outcome struct {
	IMDbErr error
	RTErr   error

	// Cached is set when the movie came from the cache.
	Cached bool
}

// Progress is called after every title with its position in the run.
type Progress func(done, total int, movie models.Movie, outcome Outcome)

// Runner looks titles up on IMDb first and Rotten Tomatoes second.
type Runner struct {
	IMDb IMDbSource
	RT   RTSource

	// Cache, when set, is consulted with CacheTTL before any fetch.
	Cache    *cache.Cache
	CacheTTL time.Duration

	now func() time.Time
}

// New creates a Runner without a cache.
func New(imdb IMDbSource, rt RTSource) *Runner {
	return &Runner{IMDb: imdb, RT: rt}
}

// WithCache enables the lookup cache.
func (r *Runner) WithCache(c *cache.Cache, ttl time.Duration) *Runner {
	r.Cache = c
	r.CacheTTL = ttl
	return r
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Lookup builds the movie row for query. A failure on one source never
// stops the other; the errors are returned in the Outcome.
func (r *Runner) Lookup(ctx context.Context, query string) (models.Movie, Outcome) {
	return r.LookupMaxAge(ctx, query, r.CacheTTL)
}

// LookupMaxAge is Lookup with a per-call cache age limit. maxAge <= 0 skips
// the cache read; a complete result is still stored.
func (r *Runner) LookupMaxAge(ctx context.Context, query string, maxAge time.Duration) (models.Movie, Outcome) {
	if r.Cache != nil {
		if movie, ok := r.Cache.Get(cache.Key(query), maxAge); ok {
			slog.Debug("cache hit", "title", movie.Title)
			return movie, Outcome{Cached: true}
		}
	}

	movie := models.Movie{Title: source.TitleCase(query), Query: query}
	var outcome Outcome

	// 1. IMDb
	rtQuery := query
	imdb, err := r.IMDb.Details(ctx, query)
	if err != nil {
		outcome.IMDbErr = err
		slog.Warn("IMDb lookup failed", "title", movie.Title, "error", err)
	} else {
		// An id query has no readable title of its own.
		if imdb.ID == query && imdb.Name != "" {
			movie.Title = imdb.Name
			rtQuery = imdb.Name
		}
		movie.IMDbID = imdb.ID
		movie.IMDbRating = imdb.Rating
		movie.IMDbLink = imdb.Link
		movie.Genres = imdb.Genres
		if imdb.Description != "" {
			movie.Description = imdb.Description
			movie.DescriptionSource = models.SourceIMDb
		}
	}
	if movie.IMDbRating != nil {
		slog.Info("found on IMDb", "title", movie.Title, "rating", strconv.FormatFloat(*movie.IMDbRating, 'f', -1, 64))
	} else {
		slog.Info("not found on IMDb", "title", movie.Title)
	}

	// 2. Rotten Tomatoes
	rt, err := r.RT.Lookup(ctx, rtQuery)
	if err != nil {
		outcome.RTErr = err
		slog.Warn("Rotten Tomatoes lookup failed", "title", movie.Title, "error", err)
	}
	if rt != nil {
		movie.RTLink = rt.Link
		if err == nil {
			movie.RTRating = rt.Tomatometer
		}
	}
	if movie.RTRating != nil {
		slog.Info("found on Rotten Tomatoes", "title", movie.Title, "rating", *movie.RTRating)
	} else {
		slog.Info("not found on Rotten Tomatoes", "title", movie.Title)
	}

	// 3. Merge: the RT synopsis stands in for a missing IMDb description.
	if movie.Description == "" && rt != nil && rt.Synopsis != "" {
		movie.Description = rt.Synopsis
		movie.DescriptionSource = models.SourceRottenTomatoes
		slog.Info("description from Rotten Tomatoes", "title", movie.Title)
	}

	if r.Cache != nil && outcome.IMDbErr == nil && outcome.RTErr == nil {
		r.Cache.Set(cache.Key(query), movie)
	}
	return movie, outcome
}

// Run looks every title up in order and returns the report. When ctx is
// canceled the report holds only the movies completed before it, a title
// cut off mid-lookup is dropped, and the context error is returned
// alongside it. Summary.Total counts the movies in the report.
func (r *Runner) Run(ctx context.Context, titles []string, progress Progress) (*models.Report, error) {
	report := &models.Report{
		Movies:    make([]models.Movie, 0, len(titles)),
		StartedAt: r.clock(),
	}
	report.Summary.NotFoundIMDb = []string{}
	report.Summary.NotFoundRT = []string{}

	var runErr error
	for i, query := range titles {
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted", "completed", i, "total", len(titles), "error", err)
			runErr = err
			break
		}

		slog.Info("processing movie", "title", source.TitleCase(query), "index", i+1, "total", len(titles))
		movie, outcome := r.Lookup(ctx, query)
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted, dropping unfinished lookup", "title", movie.Title, "completed", i, "total", len(titles), "error", err)
			runErr = err
			break
		}
		report.Movies = append(report.Movies, movie)
		report.Summary.Add(movie)

		if progress != nil {
			progress(i+1, len(titles), movie, outcome)
		}
	}

	report.Summary.Total = len(report.Movies)
	report.FinishedAt = r.clock()
	return report, runErr
}
