package cleaner

import (
	"strings"

	"golang.org/x/net/html"
)

// Text decodes HTML entities and collapses all whitespace runs (including
// newlines) into single spaces. JSON-LD strings on movie pages routinely
// carry entities such as &apos; and &quot;.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
