package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Scraper.PageDelay)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, []string{"Image", "Stylesheet", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, "https://www.imdb.com", cfg.Sources.IMDbBaseURL)
	assert.Equal(t, "https://www.rottentomatoes.com", cfg.Sources.RTBaseURL)
	assert.Equal(t, FetchModeBrowser, cfg.Sources.IMDbFetchMode)
	assert.Equal(t, FetchModeHTTP, cfg.Sources.RTFetchMode)
	assert.Equal(t, "tsv", cfg.Report.Format)
	assert.Equal(t, 22, cfg.SFTP.Port)
	assert.Nil(t, cfg.Auth.APIKeys)
	assert.True(t, cfg.NeedsBrowser())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REELSCORE_SCRAPER_PAGE_DELAY", "250ms")
	t.Setenv("REELSCORE_SOURCES_IMDB_FETCH_MODE", "HTTP")
	t.Setenv("REELSCORE_SOURCES_IMDB_BASE_URL", "http://localhost:9999/")
	t.Setenv("REELSCORE_AUTH_API_KEYS", "k1, k2 ,,k3")
	t.Setenv("REELSCORE_SERVER_PORT", "9090")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.PageDelay)
	assert.Equal(t, FetchModeHTTP, cfg.Sources.IMDbFetchMode)
	assert.Equal(t, "http://localhost:9999", cfg.Sources.IMDbBaseURL)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Auth.APIKeys)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.NeedsBrowser())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reelscore.yaml")
	content := `
scraper:
  page_delay: 2s
report:
  format: json
  output: out.json
store:
  path: history.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Scraper.PageDelay)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, "out.json", cfg.Report.Output)
	assert.Equal(t, "history.db", cfg.Store.Path)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidFetchMode(t *testing.T) {
	t.Setenv("REELSCORE_SOURCES_RT_FETCH_MODE", "carrier-pigeon")

	v, err := New("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.rt_fetch_mode")
}

func TestLoad_NegativeDelay(t *testing.T) {
	t.Setenv("REELSCORE_SCRAPER_PAGE_DELAY", "-1s")

	v, err := New("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , ,b ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitList(tt.in), "input %q", tt.in)
	}
}
