package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// titleFile is the mapping form of a YAML title list.
type titleFile struct {
	Titles []string `yaml:"titles"`
}

// LoadTitles reads the titles to look up from path. Files ending in .yaml
// or .yml hold either a list or a mapping with a "titles" list; anything
// else is read as one title per line. "-" reads lines from stdin.
func LoadTitles(path string) ([]string, error) {
	if path == "-" {
		return ReadTitles(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open titles: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAMLTitles(f)
	default:
		return ReadTitles(f)
	}
}

// ReadTitles reads one title per line. Lines are trimmed; blank lines and
// lines starting with # are skipped.
func ReadTitles(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: read titles: %w", err)
	}
	return Dedup(lines), nil
}

// ReadYAMLTitles reads a YAML list of titles, bare or under "titles".
func ReadYAMLTitles(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read titles: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		var file titleFile
		if err2 := yaml.Unmarshal(data, &file); err2 != nil {
			return nil, fmt.Errorf("pipeline: parse yaml titles: %w", err)
		}
		list = file.Titles
	}

	out := make([]string, 0, len(list))
	for _, t := range list {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return Dedup(out), nil
}

// Dedup drops repeated titles, keeping the first occurrence.
func Dedup(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
