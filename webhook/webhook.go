// Package webhook notifies report subscribers when an API report job ends.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/reelscore/models"
)

// Event types.
const (
	EventReportCompleted = "report.completed"
	EventReportFailed    = "report.failed"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when the
// subscriber gave a secret.
const SignatureHeader = "X-Reelscore-Signature"

// ReportEvent is the JSON body posted to a report's webhook_url.
type ReportEvent struct {
	Type     string    `json:"type"`
	ReportID string    `json:"report_id"`
	SentAt   time.Time `json:"sent_at"`

	// Summary is set whenever the job produced a report, even a partial one.
	Summary *models.Summary `json:"summary,omitempty"`

	// Error explains a failed job.
	Error *models.ErrorDetail `json:"error,omitempty"`
}

// NewReportEvent builds the event for a finished job. A nil jobErr makes
// a completed event.
func NewReportEvent(reportID string, rep *models.Report, jobErr *models.ErrorDetail) *ReportEvent {
	ev := &ReportEvent{
		Type:     EventReportCompleted,
		ReportID: reportID,
		SentAt:   time.Now().UTC(),
		Error:    jobErr,
	}
	if jobErr != nil {
		ev.Type = EventReportFailed
	}
	if rep != nil {
		summary := rep.Summary
		ev.Summary = &summary
	}
	return ev
}

// Sign returns the SignatureHeader value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Client posts report events. Backoff lists the wait before each attempt;
// its length is the attempt count.
type Client struct {
	HTTP    *http.Client
	Backoff []time.Duration
}

// NewClient returns a Client with a 10s request timeout that tries every
// event four times: at once, then after 1s, 5s and 30s.
func NewClient() *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Backoff: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Send posts ev to url once. Any status of 300 or above is an error.
func (c *Client) Send(ctx context.Context, url, secret string, ev *ReportEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: encode %s: %w", ev.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Reelscore-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", ev.Type, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook: subscriber answered %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers ev in the background, retrying per Backoff. The
// returned channel is closed once the event was accepted or every
// attempt failed.
func (c *Client) Notify(url, secret string, ev *ReportEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		log := slog.With("report_id", ev.ReportID, "event", ev.Type)

		for i, wait := range c.Backoff {
			time.Sleep(wait)
			err := c.Send(context.Background(), url, secret, ev)
			if err == nil {
				log.Info("webhook delivered", "attempt", i+1)
				return
			}
			log.Warn("webhook attempt failed", "attempt", i+1, "error", err)
		}
		log.Error("webhook dropped", "attempts", len(c.Backoff))
	}()
	return done
}
