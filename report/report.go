// Package report serializes a pipeline report to tsv, csv or json.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/use-agent/reelscore/models"
)

// Column names, in output order.
var columns = []string{
	"Movie Title",
	"Description",
	"Genres",
	"IMDb Rating",
	"IMDb Link",
	"Rotten Tomatoes Rating",
	"Rotten Tomatoes Link",
}

// Format is a registered report serialization.
type Format struct {
	Name        string
	ContentType string
	Extension   string
	Write       func(w io.Writer, rep *models.Report) error
}

// formats is the registry of writers by name. Writers register in init.
var formats = map[string]Format{}

func register(f Format) { formats[f.Name] = f }

// Lookup returns the format registered under name.
func Lookup(name string) (Format, error) {
	f, ok := formats[strings.ToLower(name)]
	if !ok {
		return Format{}, fmt.Errorf("report: unknown format %q (want one of %s)", name, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Formats lists the registered format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write serializes rep to w in the named format.
func Write(format string, w io.Writer, rep *models.Report) error {
	f, err := Lookup(format)
	if err != nil {
		return err
	}
	return f.Write(w, rep)
}

// Marshal returns rep serialized in the named format.
func Marshal(format string, rep *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(format, &buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Sorted returns the movies ordered by display title. rep is not modified.
func Sorted(movies []models.Movie) []models.Movie {
	out := make([]models.Movie, len(movies))
	copy(out, movies)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// EscapeDescription replaces semicolons, which downstream spreadsheet
// imports treat as separators.
func EscapeDescription(s string) string {
	return strings.ReplaceAll(s, ";", "[semicolon]")
}

// cells renders one movie in column order. Missing values are empty.
func cells(m models.Movie) []string {
	imdbRating := ""
	if m.IMDbRating != nil {
		imdbRating = strconv.FormatFloat(*m.IMDbRating, 'f', -1, 64)
	}
	rtRating := ""
	if m.RTRating != nil {
		rtRating = strconv.Itoa(*m.RTRating)
	}
	return []string{
		m.Title,
		EscapeDescription(m.Description),
		strings.Join(m.Genres, ", "),
		imdbRating,
		m.IMDbLink,
		rtRating,
		m.RTLink,
	}
}
