// Package store keeps the history of report runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/use-agent/reelscore/models"
)

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one row of the run history.
type Run struct {
	ID          int64
	Origin      string // "cli" or "api"
	Output      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	FetchedIMDb int
	FetchedRT   int
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			origin TEXT NOT NULL,
			output TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			fetched_imdb INTEGER NOT NULL,
			fetched_rt INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			query TEXT NOT NULL,
			description TEXT,
			description_source TEXT,
			genres TEXT,
			imdb_id TEXT,
			imdb_rating REAL,
			imdb_link TEXT,
			rt_rating INTEGER,
			rt_link TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores rep and its movies in one transaction and returns the
// new run id.
func (s *Store) SaveRun(ctx context.Context, origin, output string, rep *models.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (origin, output, started_at, finished_at, total, fetched_imdb, fetched_rt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		origin, output,
		rep.StartedAt.UTC().Format(time.RFC3339Nano),
		rep.FinishedAt.UTC().Format(time.RFC3339Nano),
		rep.Summary.Total, rep.Summary.FetchedIMDb, rep.Summary.FetchedRT,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO movies (run_id, position, title, query, description, description_source,
			genres, imdb_id, imdb_rating, imdb_link, rt_rating, rt_link)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing movie insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range rep.Movies {
		genres, err := json.Marshal(m.Genres)
		if err != nil {
			return 0, fmt.Errorf("encoding genres: %w", err)
		}
		var imdbRating sql.NullFloat64
		if m.IMDbRating != nil {
			imdbRating = sql.NullFloat64{Float64: *m.IMDbRating, Valid: true}
		}
		var rtRating sql.NullInt64
		if m.RTRating != nil {
			rtRating = sql.NullInt64{Int64: int64(*m.RTRating), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i, m.Title, m.Query, m.Description, m.DescriptionSource,
			string(genres), m.IMDbID, imdbRating, m.IMDbLink, rtRating, m.RTLink); err != nil {
			return 0, fmt.Errorf("inserting movie %q: %w", m.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, origin, output, started_at, finished_at, total, fetched_imdb, fetched_rt
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var output sql.NullString
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Origin, &output, &started, &finished, &r.Total, &r.FetchedIMDb, &r.FetchedRT); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Output = output.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun rebuilds the report of run id, movies in their original order.
func (s *Store) LoadRun(ctx context.Context, id int64) (*models.Report, error) {
	var started, finished string
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at, total FROM runs WHERE id = ?`, id,
	).Scan(&started, &finished, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	rep := &models.Report{Movies: []models.Movie{}}
	rep.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rep.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	rep.Summary = models.Summary{Total: total, NotFoundIMDb: []string{}, NotFoundRT: []string{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, query, description, description_source, genres, imdb_id, imdb_rating, imdb_link, rt_rating, rt_link
		 FROM movies WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Movie
		var description, descSource, genres, imdbID, imdbLink, rtLink sql.NullString
		var imdbRating sql.NullFloat64
		var rtRating sql.NullInt64
		if err := rows.Scan(&m.Title, &m.Query, &description, &descSource, &genres, &imdbID,
			&imdbRating, &imdbLink, &rtRating, &rtLink); err != nil {
			return nil, fmt.Errorf("scanning movie: %w", err)
		}
		m.Description = description.String
		m.DescriptionSource = descSource.String
		m.IMDbID = imdbID.String
		m.IMDbLink = imdbLink.String
		m.RTLink = rtLink.String
		if genres.Valid && genres.String != "" && genres.String != "null" {
			if err := json.Unmarshal([]byte(genres.String), &m.Genres); err != nil {
				return nil, fmt.Errorf("decoding genres of %q: %w", m.Title, err)
			}
		}
		if imdbRating.Valid {
			m.IMDbRating = models.Float(imdbRating.Float64)
		}
		if rtRating.Valid {
			m.RTRating = models.Int(int(rtRating.Int64))
		}
		rep.Movies = append(rep.Movies, m)
		rep.Summary.Add(m)
	}
	return rep, rows.Err()
}
