package models

import "time"

// Pipeline run lifecycle states.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusCancelled = "CANCELLED"
	RunStatusFailed    = "FAILED"
)

// Per-course outcome states within a run.
const (
	CourseOutcomeOK      = "OK"
	CourseOutcomeSkipped = "SKIPPED"
	CourseOutcomeError   = "ERROR"
)

// RunParams captures the window a pipeline run operates on.
type RunParams struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CourseOutcome records how one course fared during a run. Skipped
// courses carry a human-readable reason; they are expected and frequent
// (too new, too small, never used for assessment).
type CourseOutcome struct {
	CourseID   int64  `json:"course_id"`
	CourseName string `json:"course_name"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// PipelineRun is the observable state of one ETL execution.
type PipelineRun struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Params       RunParams       `json:"params"`
	TotalCourses int             `json:"total_courses"`
	Processed    int             `json:"processed"`
	Succeeded    int             `json:"succeeded"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Error        string          `json:"error,omitempty"`
	Outcomes     []CourseOutcome `json:"outcomes,omitempty"`
}
