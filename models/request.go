package models

// LookupRequest is the payload for POST /api/v1/lookup.
type LookupRequest struct {
	// Title is a movie title or an IMDb id (tt1234567). Required.
	Title string `json:"title" binding:"required"`

	// MaxAge is the maximum acceptable age (in milliseconds) of a cached
	// record. 0 disables the cache for this request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// ReportRequest is the payload for POST /api/v1/reports.
type ReportRequest struct {
	// Titles is the list of movie titles to look up. Required.
	Titles []string `json:"titles" binding:"required,min=1,max=500"`

	// WebhookURL receives a signed event when the report finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}
