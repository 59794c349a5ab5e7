// Command reelscore-mcp exposes the reelscore HTTP API as MCP tools over
// stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/reelscore/models"
)

// pollInterval is the wait between two report status requests.
var pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("REELSCORE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("REELSCORE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "REELSCORE_API_KEY is required")
		os.Exit(1)
	}
	apiURL = strings.TrimRight(apiURL, "/")

	s := server.NewMCPServer(
		"reelscore",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	lookupTool := mcp.NewTool("lookup_movie",
		mcp.WithDescription("Look a movie up on IMDb and Rotten Tomatoes and return its ratings, description, genres and links."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Movie title, or an IMDb id such as tt0113277"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result up to this many milliseconds old (default: 0, always fetch)"),
		),
	)
	s.AddTool(lookupTool, handleLookup(apiURL, apiKey))

	reportTool := mcp.NewTool("build_report",
		mcp.WithDescription("Look up a list of movies and return the combined ratings report. Waits until every title is processed."),
		mcp.WithArray("titles",
			mcp.Required(),
			mcp.Description("Movie titles to look up"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: 'tsv' (default), 'csv' or 'json'"),
			mcp.Enum("tsv", "csv", "json"),
		),
	)
	s.AddTool(reportTool, handleBuildReport(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the reelscore API and returns the status code
// and the response body.
func apiDo(ctx context.Context, client *http.Client, method, url, apiKey string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// errorText renders the error detail of an API response body.
func errorText(status int, body []byte) string {
	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		return fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
	}
	return fmt.Sprintf("API returned status %d", status)
}

func handleLookup(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := request.RequireString("title")
		if err != nil || strings.TrimSpace(title) == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		payload := models.LookupRequest{
			Title:  title,
			MaxAge: request.GetInt("max_age", 0),
		}

		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/lookup", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.LookupResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success || resp.Movie == nil {
			return mcp.NewToolResultError(errorText(status, body)), nil
		}
		return mcp.NewToolResultText(formatMovie(resp.Movie)), nil
	}
}

func handleBuildReport(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		titles, err := request.RequireStringSlice("titles")
		if err != nil || len(titles) == 0 {
			return mcp.NewToolResultError("titles is required and must be an array of strings"), nil
		}
		format := request.GetString("format", "tsv")

		// ── 1. Create the job ─────────────────────────────────────────
		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/reports", apiKey,
			models.ReportRequest{Titles: titles})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var job models.ReportJobResponse
		if err := json.Unmarshal(body, &job); err != nil || job.ID == "" {
			return mcp.NewToolResultError(errorText(status, body)), nil
		}

		// ── 2. Wait for completion ────────────────────────────────────
		final, err := pollReport(ctx, client, apiURL+"/api/v1/reports/"+job.ID, apiKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling report failed: %v", err)), nil
		}
		if final.Status != models.JobCompleted {
			msg := "report failed"
			if final.Error != nil {
				msg = fmt.Sprintf("[%s] %s", final.Error.Code, final.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		// ── 3. Export ─────────────────────────────────────────────────
		status, body, err = apiDo(ctx, client, http.MethodGet,
			apiURL+"/api/v1/reports/"+job.ID+"/export?format="+format, apiKey, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(errorText(status, body)), nil
		}

		var sb strings.Builder
		if final.Report != nil {
			s := final.Report.Summary
			fmt.Fprintf(&sb, "Movies: %d, IMDb ratings: %d, Rotten Tomatoes ratings: %d\n\n",
				s.Total, s.FetchedIMDb, s.FetchedRT)
		}
		sb.Write(body)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// pollReport polls a report until it is no longer processing or ctx is
// done.
func pollReport(ctx context.Context, client *http.Client, url, apiKey string) (*models.ReportStatusResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, body, err := apiDo(ctx, client, http.MethodGet, url, apiKey, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("%s", errorText(status, body))
			}
			var resp models.ReportStatusResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if resp.Status != models.JobProcessing {
				return &resp, nil
			}
		}
	}
}

// formatMovie renders one movie as readable text.
func formatMovie(m *models.Movie) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", m.Title)
	if m.IMDbRating != nil {
		fmt.Fprintf(&sb, "IMDb: %s/10 (%s)\n", strconv.FormatFloat(*m.IMDbRating, 'f', -1, 64), m.IMDbLink)
	} else {
		sb.WriteString("IMDb: not found\n")
	}
	if m.RTRating != nil {
		fmt.Fprintf(&sb, "Rotten Tomatoes: %d%% (%s)\n", *m.RTRating, m.RTLink)
	} else {
		sb.WriteString("Rotten Tomatoes: not found\n")
	}
	if len(m.Genres) > 0 {
		fmt.Fprintf(&sb, "Genres: %s\n", strings.Join(m.Genres, ", "))
	}
	if m.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", m.Description)
	}
	return sb.String()
}
