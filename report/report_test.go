package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/reelscore/models"
)

func sampleReport() *models.Report {
	return &models.Report{
		Movies: []models.Movie{
			{
				Title:       "Heat",
				Description: "Thieves; cops.",
				Genres:      []string{"Action", "Crime"},
				IMDbRating:  models.Float(8.3),
				IMDbLink:    "https://www.imdb.com/title/tt0113277",
				RTRating:    models.Int(88),
				RTLink:      "https://www.rottentomatoes.com/m/heat_1995",
			},
			{
				Title:  "Alien",
				RTLink: "https://www.rottentomatoes.com/m/alien",
			},
		},
		Summary: models.Summary{Total: 2, FetchedIMDb: 1, FetchedRT: 1, NotFoundIMDb: []string{"Alien"}, NotFoundRT: []string{"Alien"}},
	}
}

func TestWriteTSV_Transposed(t *testing.T) {
	out, err := Marshal("tsv", sampleReport())
	require.NoError(t, err)

	want := "Movie Title\tAlien\tHeat\n" +
		"Description\t\tThieves[semicolon] cops.\n" +
		"Genres\t\tAction, Crime\n" +
		"IMDb Rating\t\t8.3\n" +
		"IMDb Link\t\thttps://www.imdb.com/title/tt0113277\n" +
		"Rotten Tomatoes Rating\t\t88\n" +
		"Rotten Tomatoes Link\thttps://www.rottentomatoes.com/m/alien\thttps://www.rottentomatoes.com/m/heat_1995\n"
	assert.Equal(t, want, string(out))
}

func TestWriteTSV_Empty(t *testing.T) {
	out, err := Marshal("tsv", &models.Report{})
	require.NoError(t, err)
	assert.Equal(t, "Movie Title\nDescription\nGenres\nIMDb Rating\nIMDb Link\nRotten Tomatoes Rating\nRotten Tomatoes Link\n", string(out))
}

func TestWriteCSV_Rows(t *testing.T) {
	out, err := Marshal("CSV", sampleReport())
	require.NoError(t, err)

	want := "Movie Title,Description,Genres,IMDb Rating,IMDb Link,Rotten Tomatoes Rating,Rotten Tomatoes Link\n" +
		"Alien,,,,,,https://www.rottentomatoes.com/m/alien\n" +
		`Heat,Thieves[semicolon] cops.,"Action, Crime",8.3,https://www.imdb.com/title/tt0113277,88,https://www.rottentomatoes.com/m/heat_1995` + "\n"
	assert.Equal(t, want, string(out))
}

func TestWriteJSON(t *testing.T) {
	rep := sampleReport()
	out, err := Marshal("json", rep)
	require.NoError(t, err)

	var got models.Report
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got.Movies, 2)
	assert.Equal(t, "Alien", got.Movies[0].Title)
	assert.Equal(t, "Thieves; cops.", got.Movies[1].Description, "json keeps the raw description")
	assert.Equal(t, rep.Summary, got.Summary)
	assert.Equal(t, "Heat", rep.Movies[0].Title, "input order is untouched")
}

func TestLookup_UnknownFormat(t *testing.T) {
	_, err := Lookup("xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv, json, tsv")
	assert.Equal(t, []string{"csv", "json", "tsv"}, Formats())
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "movie_ratings.csv")

	require.NoError(t, WriteFile(path, "tsv", sampleReport()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Movie Title\tAlien\tHeat\n")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile_RenameFailureCleansUp(t *testing.T) {
	saved := renameFunc
	renameFunc = func(string, string) error { return errors.New("boom") }
	defer func() { renameFunc = saved }()

	dir := t.TempDir()
	err := WriteFile(filepath.Join(dir, "out.tsv"), "tsv", sampleReport())
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile_UnknownFormatWritesNothing(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, WriteFile(filepath.Join(dir, "out"), "xml", sampleReport()))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleReport().Summary))
	assert.Equal(t, "\nRating fetch completed!\n"+
		"Total movies processed: 2\n"+
		"Ratings fetched from IMDb: 1\n"+
		"Ratings fetched from Rotten Tomatoes: 1\n"+
		"Movies not found on IMDb:\n- Alien\n"+
		"Movies not found on Rotten Tomatoes:\n- Alien\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, models.Summary{Total: 1, FetchedIMDb: 1, FetchedRT: 1}))
	assert.NotContains(t, buf.String(), "not found")
}
