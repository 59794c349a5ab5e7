package report

import (
	"encoding/json"
	"io"

	"github.com/use-agent/reelscore/models"
)

func init() {
	register(Format{Name: "json", ContentType: "application/json; charset=utf-8", Extension: ".json", Write: WriteJSON})
}

// WriteJSON writes movies sorted by title together with the summary.
func WriteJSON(w io.Writer, rep *models.Report) error {
	out := *rep
	out.Movies = Sorted(rep.Movies)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
