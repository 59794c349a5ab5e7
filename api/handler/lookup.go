package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/reelscore/models"
	"github.com/use-agent/reelscore/pipeline"
)

// Service runs lookups. *pipeline.Runner satisfies it.
type Service interface {
	LookupMaxAge(ctx context.Context, query string, maxAge time.Duration) (models.Movie, pipeline.Outcome)
	Run(ctx context.Context, titles []string, progress pipeline.Progress) (*models.Report, error)
}

// Lookup returns a handler for POST /api/v1/lookup.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Runner lookup (cache first when max_age > 0, then IMDb, then RT).
//  3. Per-source errors go into the body; the request fails only when
//     both sources failed.
func Lookup(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.LookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortInvalid(c, err.Error())
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			abortInvalid(c, "title must not be blank")
			return
		}

		// ── 2. Lookup ───────────────────────────────────────────────
		maxAge := time.Duration(req.MaxAge) * time.Millisecond
		movie, outcome := svc.LookupMaxAge(c.Request.Context(), req.Title, maxAge)

		// ── 3. Respond ──────────────────────────────────────────────
		resp := models.LookupResponse{
			Success:   outcome.IMDbErr == nil || outcome.RTErr == nil,
			Movie:     &movie,
			IMDbError: models.AsDetail(outcome.IMDbErr),
			RTError:   models.AsDetail(outcome.RTErr),
		}
		if req.MaxAge > 0 {
			resp.CacheStatus = "miss"
			if outcome.Cached {
				resp.CacheStatus = "hit"
			}
		}
		resp.TotalMs = time.Since(totalStart).Milliseconds()

		status := http.StatusOK
		if !resp.Success {
			resp.Error = resp.IMDbError
			status = mapErrorToStatus(outcome.IMDbErr)
		}
		c.JSON(status, resp)
	}
}

// abortInvalid rejects a request with 400 INVALID_INPUT.
func abortInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: msg},
	})
}

// respondError maps err to the correct HTTP status code and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error) {
	c.JSON(mapErrorToStatus(err), models.ErrorResponse{
		Success: false,
		Error:   models.AsDetail(err),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(err error) int {
	var se *models.ScrapeError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeParse:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
