package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/reelscore/models"
)

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleLookup(t *testing.T) {
	rating := 8.3
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lookup", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))

		var req models.LookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Heat", req.Title)
		assert.Equal(t, 60000, req.MaxAge)

		_ = json.NewEncoder(w).Encode(models.LookupResponse{
			Success: true,
			Movie: &models.Movie{
				Title:      "Heat",
				IMDbRating: &rating,
				IMDbLink:   "https://www.imdb.com/title/tt0113277/",
				Genres:     []string{"Action", "Crime"},
			},
		})
	}))
	defer srv.Close()

	res, err := handleLookup(srv.URL, "k")(context.Background(),
		toolRequest(map[string]any{"title": "Heat", "max_age": 60000}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Title: Heat")
	assert.Contains(t, text, "IMDb: 8.3/10")
	assert.Contains(t, text, "Rotten Tomatoes: not found")
	assert.Contains(t, text, "Genres: Action, Crime")
}

func TestHandleLookup_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(models.LookupResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeNotFound, Message: "no match"},
		})
	}))
	defer srv.Close()

	res, err := handleLookup(srv.URL, "k")(context.Background(),
		toolRequest(map[string]any{"title": "zzqx"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no match")
}

func TestHandleLookup_MissingTitle(t *testing.T) {
	res, err := handleLookup("http://127.0.0.1:1", "k")(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleBuildReport(t *testing.T) {
	old := pollInterval
	pollInterval = 10 * time.Millisecond
	defer func() { pollInterval = old }()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/reports":
			var req models.ReportRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"Heat", "Alien"}, req.Titles)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.ReportJobResponse{ID: "report-1", Status: models.JobProcessing, Total: 2})
		case r.URL.Path == "/api/v1/reports/report-1":
			resp := models.ReportStatusResponse{ID: "report-1", Status: models.JobProcessing, Total: 2}
			if polls.Add(1) > 1 {
				resp.Status = models.JobCompleted
				resp.Completed = 2
				resp.Report = &models.Report{Summary: models.Summary{Total: 2, FetchedIMDb: 2, FetchedRT: 1}}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case r.URL.Path == "/api/v1/reports/report-1/export":
			assert.Equal(t, "csv", r.URL.Query().Get("format"))
			_, _ = w.Write([]byte("Movie Title,Description\nAlien,x\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	res, err := handleBuildReport(srv.URL, "k")(context.Background(),
		toolRequest(map[string]any{"titles": []any{"Heat", "Alien"}, "format": "csv"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Movies: 2, IMDb ratings: 2, Rotten Tomatoes ratings: 1")
	assert.Contains(t, text, "Movie Title,Description")
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestHandleBuildReport_Failed(t *testing.T) {
	old := pollInterval
	pollInterval = 10 * time.Millisecond
	defer func() { pollInterval = old }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(models.ReportJobResponse{ID: "report-2", Status: models.JobProcessing})
			return
		}
		_ = json.NewEncoder(w).Encode(models.ReportStatusResponse{
			ID:     "report-2",
			Status: models.JobFailed,
			Error:  &models.ErrorDetail{Code: models.ErrCodeTimeout, Message: "cancelled"},
		})
	}))
	defer srv.Close()

	res, err := handleBuildReport(srv.URL, "k")(context.Background(),
		toolRequest(map[string]any{"titles": []any{"Heat"}}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "cancelled")
}
