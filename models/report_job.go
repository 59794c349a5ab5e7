package models

import "sync"

// Report job states.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ReportJobResponse is the immediate response for POST /api/v1/reports.
type ReportJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// ReportStatusResponse is the response for GET /api/v1/reports/:id.
type ReportStatusResponse struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
	Report    *Report      `json:"report,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// ReportJob tracks an in-progress report build.
type ReportJob struct {
	mu        sync.Mutex
	ID        string
	Status    string
	Total     int
	Completed int
	Report    *Report
	Err       *ErrorDetail
	CreatedAt int64 // unix timestamp
}

// Advance records one more processed title.
func (j *ReportJob) Advance() {
	j.mu.Lock()
	j.Completed++
	j.mu.Unlock()
}

// Finish stores the final report and status.
func (j *ReportJob) Finish(rep *Report, status string, errDetail *ErrorDetail) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Report = rep
	j.Status = status
	j.Err = errDetail
	if rep != nil {
		j.Completed = len(rep.Movies)
	}
}

// Snapshot returns a consistent view of the job for API responses.
func (j *ReportJob) Snapshot() ReportStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ReportStatusResponse{
		ID:        j.ID,
		Status:    j.Status,
		Completed: j.Completed,
		Total:     j.Total,
		Report:    j.Report,
		Error:     j.Err,
	}
}
