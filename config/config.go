package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// REELSCORE_SCRAPER_PAGE_DELAY=3s.
const EnvPrefix = "REELSCORE"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Sources   SourcesConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Store     StoreConfig
	SFTP      SFTPConfig
	Report    ReportConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 2

	// Proxy is the proxy URL used by the browser and the HTTP engine.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls page fetching.
type ScraperConfig struct {
	// PageDelay is the fixed minimum interval between two page loads on
	// the same host.
	PageDelay time.Duration // default: 5s

	// Timeout is the per-page deadline.
	Timeout time.Duration // default: 30s

	// Stealth injects go-rod/stealth into browser pages.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types the browser must not load.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// SourcesConfig points the two movie sources at their sites.
type SourcesConfig struct {
	IMDbBaseURL string // default: "https://www.imdb.com"
	RTBaseURL   string // default: "https://www.rottentomatoes.com"

	// IMDbFetchMode and RTFetchMode are "http", "browser" or "auto".
	IMDbFetchMode string // default: "browser"
	RTFetchMode   string // default: "http"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 5
}

// CacheConfig controls the movie lookup cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached movies.
	MaxEntries int // default: 1000

	// TTL is how long a cached movie is reused by the CLI pipeline.
	// 0 disables caching for runs.
	TTL time.Duration // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// StoreConfig controls the run history database.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string
}

// SFTPConfig controls the optional report upload.
type SFTPConfig struct {
	Host           string
	Port           int // default: 22
	User           string
	Password       string
	RemoteDir      string // default: "/"
	KnownHostsPath string

	// InsecureIgnoreHostKey skips host key verification when no
	// known_hosts file is configured.
	InsecureIgnoreHostKey bool
}

// ReportConfig controls report serialization.
type ReportConfig struct {
	// Format is "tsv", "csv" or "json".
	Format string // default: "tsv"

	// Output is the report path; "-" writes to stdout.
	Output string // default: "movie_ratings.csv"
}

// Fetch modes accepted by SourcesConfig.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
	FetchModeAuto    = "auto"
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.max_pages", 2)
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.bin", "")

	v.SetDefault("scraper.page_delay", 5*time.Second)
	v.SetDefault("scraper.timeout", 30*time.Second)
	v.SetDefault("scraper.stealth", true)
	v.SetDefault("scraper.blocked_resources", "Image,Stylesheet,Font,Media")

	v.SetDefault("sources.imdb_base_url", "https://www.imdb.com")
	v.SetDefault("sources.rt_base_url", "https://www.rottentomatoes.com")
	v.SetDefault("sources.imdb_fetch_mode", FetchModeBrowser)
	v.SetDefault("sources.rt_fetch_mode", FetchModeHTTP)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_keys", "")

	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.path", "")

	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", 22)
	v.SetDefault("sftp.user", "")
	v.SetDefault("sftp.password", "")
	v.SetDefault("sftp.remote_dir", "/")
	v.SetDefault("sftp.known_hosts", "")
	v.SetDefault("sftp.insecure_ignore_host_key", false)

	v.SetDefault("report.format", "tsv")
	v.SetDefault("report.output", "movie_ratings.csv")
}

// New returns a viper instance with defaults and environment overrides
// wired. If configFile is non-empty it is read as well.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
			Mode: v.GetString("server.mode"),
		},
		Browser: BrowserConfig{
			Headless:   v.GetBool("browser.headless"),
			MaxPages:   v.GetInt("browser.max_pages"),
			Proxy:      v.GetString("browser.proxy"),
			NoSandbox:  v.GetBool("browser.no_sandbox"),
			BrowserBin: v.GetString("browser.bin"),
		},
		Scraper: ScraperConfig{
			PageDelay:            v.GetDuration("scraper.page_delay"),
			Timeout:              v.GetDuration("scraper.timeout"),
			Stealth:              v.GetBool("scraper.stealth"),
			BlockedResourceTypes: splitList(v.GetString("scraper.blocked_resources")),
		},
		Sources: SourcesConfig{
			IMDbBaseURL:   strings.TrimRight(v.GetString("sources.imdb_base_url"), "/"),
			RTBaseURL:     strings.TrimRight(v.GetString("sources.rt_base_url"), "/"),
			IMDbFetchMode: strings.ToLower(v.GetString("sources.imdb_fetch_mode")),
			RTFetchMode:   strings.ToLower(v.GetString("sources.rt_fetch_mode")),
		},
		Auth: AuthConfig{
			Enabled: v.GetBool("auth.enabled"),
			APIKeys: splitList(v.GetString("auth.api_keys")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("rate_limit.rps"),
			Burst:             v.GetInt("rate_limit.burst"),
		},
		Cache: CacheConfig{
			MaxEntries: v.GetInt("cache.max_entries"),
			TTL:        v.GetDuration("cache.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		SFTP: SFTPConfig{
			Host:                  v.GetString("sftp.host"),
			Port:                  v.GetInt("sftp.port"),
			User:                  v.GetString("sftp.user"),
			Password:              v.GetString("sftp.password"),
			RemoteDir:             v.GetString("sftp.remote_dir"),
			KnownHostsPath:        v.GetString("sftp.known_hosts"),
			InsecureIgnoreHostKey: v.GetBool("sftp.insecure_ignore_host_key"),
		},
		Report: ReportConfig{
			Format: strings.ToLower(v.GetString("report.format")),
			Output: v.GetString("report.output"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, mode := range map[string]string{
		"sources.imdb_fetch_mode": c.Sources.IMDbFetchMode,
		"sources.rt_fetch_mode":   c.Sources.RTFetchMode,
	} {
		switch mode {
		case FetchModeHTTP, FetchModeBrowser, FetchModeAuto:
		default:
			return fmt.Errorf("config: %s must be http, browser or auto, got %q", name, mode)
		}
	}
	if c.Scraper.PageDelay < 0 {
		return fmt.Errorf("config: scraper.page_delay must not be negative")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("config: scraper.timeout must be positive")
	}
	if c.Browser.MaxPages <= 0 {
		return fmt.Errorf("config: browser.max_pages must be positive")
	}
	return nil
}

// NeedsBrowser reports whether any source may use the browser engines.
func (c *Config) NeedsBrowser() bool {
	return c.Sources.IMDbFetchMode != FetchModeHTTP || c.Sources.RTFetchMode != FetchModeHTTP
}

// --- helper functions ---

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
