package models

// LookupResponse is the response for POST /api/v1/lookup.
type LookupResponse struct {
	Success bool   `json:"success"`
	Movie   *Movie `json:"movie,omitempty"`

	// IMDbError and RTError explain why a source produced nothing.
	IMDbError *ErrorDetail `json:"imdb_error,omitempty"`
	RTError   *ErrorDetail `json:"rt_error,omitempty"`

	// CacheStatus is "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	TotalMs int64 `json:"total_ms"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	Version      string       `json:"version"`
}

// BrowserStats reports the state of the shared browser.
type BrowserStats struct {
	Launched    bool `json:"launched"`
	MaxPages    int  `json:"max_pages"`
	ActivePages int  `json:"active_pages"`
}

// ErrorResponse is the body of every request rejected before a handler ran
// (bad input, missing key, rate limit).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
