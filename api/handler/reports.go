package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/reelscore/models"
	"github.com/use-agent/reelscore/pipeline"
	"github.com/use-agent/reelscore/report"
	"github.com/use-agent/reelscore/webhook"
)

// jobRetention is how long finished report jobs stay retrievable.
const jobRetention = time.Hour

// reportStore holds all in-flight and completed report jobs.
var reportStore sync.Map

// notifier delivers report webhooks.
var notifier = webhook.NewClient()

// running counts report jobs still building.
var running jobTracker

// jobTracker counts running jobs. idle is closed whenever the count drops
// to zero.
type jobTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *jobTracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *jobTracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// WaitReports blocks until every running report job has finished or ctx
// is done.
func WaitReports(ctx context.Context) error {
	running.mu.Lock()
	if running.n == 0 {
		running.mu.Unlock()
		return nil
	}
	idle := running.idle
	running.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func init() {
	// Background goroutine to expire report jobs older than jobRetention.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			expireJobs(time.Now().Add(-jobRetention).Unix())
		}
	}()
}

// expireJobs drops finished jobs created before cutoff (unix seconds).
func expireJobs(cutoff int64) {
	reportStore.Range(func(key, value any) bool {
		job := value.(*models.ReportJob)
		snap := job.Snapshot()
		if job.CreatedAt < cutoff && snap.Status != models.JobProcessing {
			reportStore.Delete(key)
		}
		return true
	})
}

// RunRecorder stores finished reports. *store.Store satisfies it.
type RunRecorder interface {
	SaveRun(ctx context.Context, origin, output string, rep *models.Report) (int64, error)
}

// PostReport returns a handler for POST /api/v1/reports.
// It validates the request, creates a job, and builds the report in the
// background under ctx, so cancelling ctx stops running jobs. recorder may
// be nil.
func PostReport(ctx context.Context, svc Service, recorder RunRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortInvalid(c, err.Error())
			return
		}

		titles := make([]string, 0, len(req.Titles))
		for _, t := range req.Titles {
			if t = strings.TrimSpace(t); t != "" {
				titles = append(titles, t)
			}
		}
		titles = pipeline.Dedup(titles)
		if len(titles) == 0 {
			abortInvalid(c, "titles must contain at least one non-blank title")
			return
		}

		job := &models.ReportJob{
			ID:        "report-" + randomID(),
			Status:    models.JobProcessing,
			Total:     len(titles),
			CreatedAt: time.Now().Unix(),
		}
		reportStore.Store(job.ID, job)

		running.add()
		go func() {
			defer running.done()
			runReport(ctx, svc, recorder, job, titles, req)
		}()

		c.JSON(http.StatusAccepted, models.ReportJobResponse{
			ID:     job.ID,
			Status: models.JobProcessing,
			Total:  job.Total,
		})
	}
}

// GetReport returns a handler for GET /api/v1/reports/:id.
func GetReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := loadJob(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// ExportReport returns a handler for GET /api/v1/reports/:id/export.
// The format query parameter defaults to tsv.
func ExportReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := loadJob(c)
		if !ok {
			return
		}
		snap := job.Snapshot()
		if snap.Status != models.JobCompleted || snap.Report == nil {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: fmt.Sprintf("report is %s, not completed", snap.Status),
				},
			})
			return
		}

		format, err := report.Lookup(c.DefaultQuery("format", "tsv"))
		if err != nil {
			abortInvalid(c, err.Error())
			return
		}
		body, err := report.Marshal(format.Name, snap.Report)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="movie_ratings%s"`, format.Extension))
		c.Data(http.StatusOK, format.ContentType, body)
	}
}

func loadJob(c *gin.Context) (*models.ReportJob, bool) {
	val, ok := reportStore.Load(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeNotFound,
				Message: "report job not found",
			},
		})
		return nil, false
	}
	return val.(*models.ReportJob), true
}

// runReport builds the report, records it and fires the webhook.
func runReport(ctx context.Context, svc Service, recorder RunRecorder, job *models.ReportJob, titles []string, req models.ReportRequest) {
	rep, err := svc.Run(ctx, titles, func(_, _ int, _ models.Movie, _ pipeline.Outcome) {
		job.Advance()
	})

	var jobErr *models.ErrorDetail
	if err != nil {
		jobErr = models.CategorizeError(err, "report interrupted").ToDetail()
		job.Finish(rep, models.JobFailed, jobErr)
	} else {
		job.Finish(rep, models.JobCompleted, nil)
	}

	if recorder != nil && rep != nil {
		if runID, saveErr := recorder.SaveRun(context.WithoutCancel(ctx), "api", job.ID, rep); saveErr != nil {
			slog.Error("failed to record report run", "id", job.ID, "error", saveErr)
		} else {
			slog.Debug("report run recorded", "id", job.ID, "run_id", runID)
		}
	}

	snap := job.Snapshot()
	slog.Info("report job finished",
		"id", job.ID,
		"status", snap.Status,
		"completed", snap.Completed,
		"total", snap.Total,
	)

	if req.WebhookURL != "" {
		notifier.Notify(req.WebhookURL, req.WebhookSecret, webhook.NewReportEvent(job.ID, rep, jobErr))
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
