package source

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"
)

// movieTypes are the schema.org @type values that describe a title page.
var movieTypes = map[string]struct{}{
	"Movie":        {},
	"TVSeries":     {},
	"TVEpisode":    {},
	"TVMovie":      {},
	"TVMiniSeries": {},
}

// findMovieLD returns the first JSON-LD object on the page whose @type is a
// movie type. Blocks holding an array or an @graph are searched as well.
// If no block declares a movie type, the first object found is returned.
func findMovieLD(doc *goquery.Document) (gson.JSON, bool) {
	var first gson.JSON
	hasFirst := false
	var found gson.JSON
	ok := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" || !json.Valid([]byte(raw)) {
			return true
		}
		for _, obj := range ldObjects(gson.NewFrom(raw)) {
			if !hasFirst {
				first, hasFirst = obj, true
			}
			if _, isMovie := movieTypes[ldType(obj)]; isMovie {
				found, ok = obj, true
				return false
			}
		}
		return true
	})

	if ok {
		return found, true
	}
	return first, hasFirst
}

// ldObjects flattens a JSON-LD document into its top-level objects.
func ldObjects(j gson.JSON) []gson.JSON {
	switch v := j.Val().(type) {
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			return ldObjects(gson.New(graph))
		}
		return []gson.JSON{j}
	case []interface{}:
		out := make([]gson.JSON, 0, len(v))
		for _, item := range v {
			if _, isObj := item.(map[string]interface{}); isObj {
				out = append(out, gson.New(item))
			}
		}
		return out
	}
	return nil
}

// ldType returns @type, taking the first entry when it is a list.
func ldType(j gson.JSON) string {
	list := stringsOf(j.Get("@type"))
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// stringOf returns j as a string when it holds one.
func stringOf(j gson.JSON) string {
	if s, ok := j.Val().(string); ok {
		return s
	}
	return ""
}

// stringsOf accepts either a single string or a list of strings.
func stringsOf(j gson.JSON) []string {
	switch v := j.Val().(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// numberOf reads a JSON number that sites publish either as a number or
// as a string ("7.8", "93%").
func numberOf(j gson.JSON) (float64, bool) {
	switch v := j.Val().(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return parseNumber(v)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
