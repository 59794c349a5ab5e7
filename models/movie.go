package models

import "time"

// Description sources recorded on a Movie.
const (
	SourceIMDb           = "imdb"
	SourceRottenTomatoes = "rottentomatoes"
)

// Movie is one row of the report. It is built once per input title and is
// not modified after it has been appended to a Report.
type Movie struct {
	// Title is the display title (title-cased query).
	Title string `json:"title"`

	// Query is the raw input line the title was built from.
	Query string `json:"query"`

	Description string `json:"description,omitempty"`

	// DescriptionSource is SourceIMDb or SourceRottenTomatoes.
	DescriptionSource string `json:"description_source,omitempty"`

	Genres []string `json:"genres,omitempty"`

	IMDbID     string   `json:"imdb_id,omitempty"`
	IMDbRating *float64 `json:"imdb_rating,omitempty"`
	IMDbLink   string   `json:"imdb_link,omitempty"`

	// RTRating is the Tomatometer percentage (0-100).
	RTRating *int   `json:"rt_rating,omitempty"`
	RTLink   string `json:"rt_link,omitempty"`
}

// Summary counts how many lookups succeeded per source.
type Summary struct {
	Total        int      `json:"total_movies"`
	FetchedIMDb  int      `json:"fetched_imdb"`
	FetchedRT    int      `json:"fetched_rt"`
	NotFoundIMDb []string `json:"not_found_imdb"`
	NotFoundRT   []string `json:"not_found_rt"`
}

// Report is the result of one pipeline run.
type Report struct {
	Movies     []Movie   `json:"movies"`
	Summary    Summary   `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Add counts movie per source. A source counts as fetched when it produced
// a rating; anything else, errors included, counts as not found. Total is
// the size of the input and is set by the caller.
func (s *Summary) Add(movie Movie) {
	if movie.IMDbRating != nil {
		s.FetchedIMDb++
	} else {
		s.NotFoundIMDb = append(s.NotFoundIMDb, movie.Title)
	}
	if movie.RTRating != nil {
		s.FetchedRT++
	} else {
		s.NotFoundRT = append(s.NotFoundRT, movie.Title)
	}
}

// Float returns a pointer to v. Used for optional ratings.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v. Used for optional ratings.
func Int(v int) *int { return &v }
