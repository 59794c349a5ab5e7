package report

import (
	"encoding/csv"
	"io"

	"github.com/use-agent/reelscore/models"
)

func init() {
	register(Format{Name: "tsv", ContentType: "text/tab-separated-values; charset=utf-8", Extension: ".tsv", Write: WriteTSV})
	register(Format{Name: "csv", ContentType: "text/csv; charset=utf-8", Extension: ".csv", Write: WriteCSV})
}

// WriteTSV writes the transposed, tab-separated layout: one column per
// movie sorted by title, one row per field. The first row holds the
// titles.
func WriteTSV(w io.Writer, rep *models.Report) error {
	movies := Sorted(rep.Movies)

	rows := make([][]string, len(columns))
	for i, name := range columns {
		rows[i] = make([]string, 0, len(movies)+1)
		rows[i] = append(rows[i], name)
	}
	for _, m := range movies {
		for i, cell := range cells(m) {
			rows[i] = append(rows[i], cell)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return writeAll(cw, rows)
}

// WriteCSV writes one comma-separated row per movie under a header row.
func WriteCSV(w io.Writer, rep *models.Report) error {
	movies := Sorted(rep.Movies)

	rows := make([][]string, 0, len(movies)+1)
	rows = append(rows, columns)
	for _, m := range movies {
		rows = append(rows, cells(m))
	}
	return writeAll(csv.NewWriter(w), rows)
}

func writeAll(cw *csv.Writer, rows [][]string) error {
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
