package report

import (
	"fmt"
	"io"

	"github.com/use-agent/reelscore/models"
)

// WriteSummary prints the end-of-run totals and the titles each source
// could not find.
func WriteSummary(w io.Writer, s models.Summary) error {
	lines := []string{
		"",
		"Rating fetch completed!",
		fmt.Sprintf("Total movies processed: %d", s.Total),
		fmt.Sprintf("Ratings fetched from IMDb: %d", s.FetchedIMDb),
		fmt.Sprintf("Ratings fetched from Rotten Tomatoes: %d", s.FetchedRT),
	}
	if len(s.NotFoundIMDb) > 0 {
		lines = append(lines, "Movies not found on IMDb:")
		for _, t := range s.NotFoundIMDb {
			lines = append(lines, "- "+t)
		}
	}
	if len(s.NotFoundRT) > 0 {
		lines = append(lines, "Movies not found on Rotten Tomatoes:")
		for _, t := range s.NotFoundRT {
			lines = append(lines, "- "+t)
		}
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
