package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumetrics/lms-kpi-api/internal/engine"
	"github.com/edumetrics/lms-kpi-api/internal/filter"
	"github.com/edumetrics/lms-kpi-api/internal/models"
	"github.com/edumetrics/lms-kpi-api/internal/period"
	appErrors "github.com/edumetrics/lms-kpi-api/pkg/errors"
	"github.com/edumetrics/lms-kpi-api/pkg/jobs"
)

// LMSClient is the extraction surface the pipeline needs from Moodle.
type LMSClient interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Courses(ctx context.Context) ([]models.Course, error)
	GradeReport(ctx context.Context, courseID int64) (*models.GradeReport, error)
	CourseContents(ctx context.Context, courseID int64) ([]models.CourseSection, error)
	EnrolledUsers(ctx context.Context, courseID int64) ([]models.EnrolledUser, error)
}

// KPIStore persists computed course records.
type KPIStore interface {
	Save(ctx context.Context, kpi *models.CourseKPI) error
}

// PipelineConfig tunes one pipeline instance.
type PipelineConfig struct {
	Workers   int
	StartDate string
	EndDate   string
}

// PipelineService orchestrates ETL runs: course discovery, filtering,
// fan-out to the worker pool, per-course indicator computation and
// persistence. At most one run is active at a time.
type PipelineService struct {
	lms     LMSClient
	store   KPIStore
	filter  *filter.CourseFilter
	pool    *jobs.Pool
	metrics *MetricsService
	logger  *zap.Logger
	config  PipelineConfig
	now     func() time.Time

	mu      sync.Mutex
	runs    map[string]*models.PipelineRun
	order   []string
	current string
	cancel  context.CancelFunc
}

// NewPipelineService constructs the pipeline orchestrator.
func NewPipelineService(lms LMSClient, store KPIStore, courseFilter *filter.CourseFilter, pool *jobs.Pool, metrics *MetricsService, logger *zap.Logger, cfg PipelineConfig) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = jobs.NewPool(jobs.PoolConfig{Workers: cfg.Workers, Logger: logger})
	}
	return &PipelineService{
		lms:     lms,
		store:   store,
		filter:  courseFilter,
		pool:    pool,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
		runs:    make(map[string]*models.PipelineRun),
	}
}

// TriggerRun starts an asynchronous pipeline run. It fails with
// ErrRunActive while another run is in progress.
func (s *PipelineService) TriggerRun() (*models.PipelineRun, error) {
	s.mu.Lock()
	if s.current != "" {
		s.mu.Unlock()
		return nil, appErrors.ErrRunActive
	}

	run := &models.PipelineRun{
		ID:     uuid.NewString(),
		Status: models.RunStatusRunning,
		Params: models.RunParams{
			StartDate: s.config.StartDate,
			EndDate:   s.config.EndDate,
		},
		StartedAt: s.now().UTC(),
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.current = run.ID

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		s.execute(ctx, run.ID)
	}()

	return s.snapshot(run.ID)
}

// Run executes the pipeline synchronously. It is the entry point for
// the backfill CLI.
func (s *PipelineService) Run(ctx context.Context) (*models.PipelineRun, error) {
	s.mu.Lock()
	if s.current != "" {
		s.mu.Unlock()
		return nil, appErrors.ErrRunActive
	}
	run := &models.PipelineRun{
		ID:     uuid.NewString(),
		Status: models.RunStatusRunning,
		Params: models.RunParams{
			StartDate: s.config.StartDate,
			EndDate:   s.config.EndDate,
		},
		StartedAt: s.now().UTC(),
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.current = run.ID
	s.mu.Unlock()

	s.execute(ctx, run.ID)
	return s.snapshot(run.ID)
}

// CancelRun requests cooperative cancellation of the active run.
func (s *PipelineService) CancelRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != id {
		if _, ok := s.runs[id]; ok {
			return appErrors.Clone(appErrors.ErrConflict, "run is not active")
		}
		return appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// GetRun returns a point-in-time copy of a run.
func (s *PipelineService) GetRun(id string) (*models.PipelineRun, error) {
	return s.snapshot(id)
}

// ListRuns returns snapshots of all known runs, newest first.
func (s *PipelineService) ListRuns() []*models.PipelineRun {
	s.mu.Lock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.Unlock()

	out := make([]*models.PipelineRun, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if snap, err := s.snapshot(ids[i]); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

func (s *PipelineService) snapshot(id string) (*models.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	snap := *run
	snap.Outcomes = append([]models.CourseOutcome(nil), run.Outcomes...)
	return &snap, nil
}

func (s *PipelineService) execute(ctx context.Context, runID string) {
	s.metrics.RecordRunStarted()
	defer s.metrics.RecordRunFinished()
	defer func() {
		s.mu.Lock()
		s.current = ""
		s.cancel = nil
		s.mu.Unlock()
	}()

	queue, categoryMap, err := s.discoverCourses(ctx)
	if err != nil {
		s.finishRun(runID, models.RunStatusFailed, err.Error())
		return
	}

	s.mu.Lock()
	s.runs[runID].TotalCourses = len(queue)
	s.mu.Unlock()

	if len(queue) == 0 {
		s.finishRun(runID, models.RunStatusCompleted, "")
		return
	}

	batch := make([]jobs.Job, 0, len(queue))
	for _, course := range queue {
		batch = append(batch, jobs.Job{
			ID:      strconv.FormatInt(course.ID, 10),
			Payload: course,
		})
	}

	handler := func(ctx context.Context, job jobs.Job) (interface{}, error) {
		course := job.Payload.(models.Course)
		started := s.now()
		outcome := s.processCourse(ctx, course, categoryMap)
		s.metrics.RecordCourseOutcome(outcome.Status, s.now().Sub(started))
		return outcome, nil
	}

	executed := s.pool.Process(ctx, batch, handler, func(result jobs.Result) {
		outcome := result.Value.(models.CourseOutcome)
		s.mu.Lock()
		run := s.runs[runID]
		run.Processed++
		switch outcome.Status {
		case models.CourseOutcomeOK:
			run.Succeeded++
		case models.CourseOutcomeSkipped:
			run.Skipped++
		default:
			run.Failed++
		}
		run.Outcomes = append(run.Outcomes, outcome)
		s.mu.Unlock()
	})

	status := models.RunStatusCompleted
	if ctx.Err() != nil && executed < len(batch) {
		status = models.RunStatusCancelled
	}
	s.finishRun(runID, status, "")
}

func (s *PipelineService) finishRun(runID, status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[runID]
	run.Status = status
	run.Error = errMsg
	now := s.now().UTC()
	run.FinishedAt = &now
	s.logger.Info("pipeline run finished",
		zap.String("run_id", runID),
		zap.String("status", status),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed))
}

// discoverCourses fetches the catalog and applies the pre-computation
// filters: term readiness and administrative metadata.
func (s *PipelineService) discoverCourses(ctx context.Context) ([]models.Course, map[int64]string, error) {
	categories, err := s.lms.Categories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch categories: %w", err)
	}
	categoryMap := BuildCategoryMap(categories)

	courses, err := s.lms.Courses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch course catalog: %w", err)
	}

	queue := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		tsRef := course.StartDate
		if tsRef == 0 {
			tsRef = course.TimeCreated
		}

		p := period.Resolve(course.FullName, tsRef)
		if !period.ReadyForAnalysis(p.TimeID, s.now()) {
			continue
		}

		verdict := s.filter.CheckMetadata(course.FullName, categoryMap[course.CategoryID], course.StartDate)
		if !verdict.Admit {
			s.logger.Debug("course excluded",
				zap.Int64("course_id", course.ID),
				zap.String("reason", verdict.Reason))
			continue
		}
		queue = append(queue, course)
	}
	return queue, categoryMap, nil
}

// processCourse runs extraction, computation, enrichment, the quality
// gate and persistence for one course. Failures are reported as run
// outcomes, never as panics or pool errors.
func (s *PipelineService) processCourse(ctx context.Context, course models.Course, categoryMap map[int64]string) models.CourseOutcome {
	outcome := models.CourseOutcome{CourseID: course.ID, CourseName: course.FullName}

	report, err := s.lms.GradeReport(ctx, course.ID)
	if err != nil {
		outcome.Status = models.CourseOutcomeError
		outcome.Reason = fmt.Sprintf("grade report: %v", err)
		return outcome
	}

	results := engine.ComputeResults(report)
	if results == nil {
		outcome.Status = models.CourseOutcomeSkipped
		outcome.Reason = "insufficient gradebook data"
		return outcome
	}

	profile := engine.ProfileStructure(report.Usergrades)
	if verdict := s.filter.CheckQuality(profile, results); !verdict.Admit {
		outcome.Status = models.CourseOutcomeSkipped
		outcome.Reason = verdict.Reason
		return outcome
	}

	sections, err := s.lms.CourseContents(ctx, course.ID)
	if err != nil {
		s.logger.Warn("course contents unavailable",
			zap.Int64("course_id", course.ID), zap.Error(err))
		sections = nil
	}
	design := engine.ComputeDesign(sections, report)
	behavior := engine.ComputeBehavior(report)

	instructorID, instructorName := s.resolveInstructor(ctx, course.ID)

	kpi := s.buildKPI(course, categoryMap[course.CategoryID], results, design, behavior)
	kpi.InstructorID = instructorID
	kpi.InstructorName = instructorName

	if err := s.store.Save(ctx, kpi); err != nil {
		outcome.Status = models.CourseOutcomeError
		outcome.Reason = fmt.Sprintf("persist: %v", err)
		return outcome
	}

	outcome.Status = models.CourseOutcomeOK
	return outcome
}

// resolveInstructor picks the course instructor by role priority:
// editing teacher, then teacher, then manager.
func (s *PipelineService) resolveInstructor(ctx context.Context, courseID int64) (int64, string) {
	users, err := s.lms.EnrolledUsers(ctx, courseID)
	if err != nil {
		s.logger.Warn("enrolled users unavailable",
			zap.Int64("course_id", courseID), zap.Error(err))
		return 0, "Unassigned"
	}
	for _, roleID := range []int{3, 4, 1} {
		for _, u := range users {
			for _, r := range u.Roles {
				if r.RoleID == roleID {
					return u.ID, u.FullName
				}
			}
		}
	}
	return 0, "Unassigned"
}

func (s *PipelineService) buildKPI(course models.Course, categoryPath string, results *engine.Group1Result, design *engine.DesignMetrics, behavior *engine.BehaviorMetrics) *models.CourseKPI {
	tsRef := course.StartDate
	if tsRef == 0 {
		tsRef = course.TimeCreated
	}
	courseName := SanitizeCourseName(course.FullName)
	p := period.Resolve(course.FullName, tsRef)

	kpi := &models.CourseKPI{
		CourseID:     course.ID,
		SubjectID:    SanitizeSubjectCode(course.ShortName),
		CourseName:   courseName,
		SubjectName:  courseName,
		CategoryID:   course.CategoryID,
		Department:   ExtractDepartment(categoryPath),
		TimeID:       p.TimeID,
		PeriodName:   p.Name,
		Year:         p.Year,
		Term:         p.Term,
		StartDate:    course.StartDate,
		EndDate:      course.EndDate,
		TimeCreated:  course.TimeCreated,
		TimeModified: course.TimeModified,

		ProcessedStudents: results.ProcessedStudents,

		Compliance:    results.Compliance,
		ComplianceNum: results.ComplianceNum,
		ComplianceDen: results.ComplianceDen,

		Approval:    results.Approval,
		ApprovalNum: results.ApprovalNum,
		ApprovalDen: results.ApprovalDen,

		GradeMean:   results.GradeMean,
		GradeMedian: results.GradeMedian,
		GradeStdDev: results.GradeStdDev,

		Participation:    results.Participation,
		ParticipationNum: results.ParticipationNum,
		ParticipationDen: results.ParticipationDen,

		Completion:    results.Completion,
		CompletionNum: results.CompletionNum,
		CompletionDen: results.CompletionDen,
	}

	if design != nil {
		active := design.ActiveMethodology
		ratio := design.EvaluationRatio
		kpi.ActiveMethodology = &active
		kpi.ActiveMethodologyNum = design.ActiveMethodologyNum
		kpi.ActiveMethodologyDen = design.ActiveMethodologyDen
		kpi.EvaluationRatio = &ratio
		kpi.EvaluationRatioNum = design.EvaluationRatioNum
		kpi.EvaluationRatioDen = design.EvaluationRatioDen
	}
	if behavior != nil {
		kpi.Excellence = behavior.Excellence
		kpi.ExcellenceNum = behavior.ExcellenceNum
		kpi.ExcellenceDen = behavior.ExcellenceDen
		kpi.FeedbackRate = behavior.FeedbackRate
		kpi.FeedbackRateNum = behavior.FeedbackRateNum
		kpi.FeedbackRateDen = behavior.FeedbackRateDen
	}

	return kpi
}

// BuildCategoryMap resolves every category to its full slash-joined
// path, walking parents up to the root.
func BuildCategoryMap(categories []models.Category) map[int64]string {
	byID := make(map[int64]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	result := make(map[int64]string, len(categories))
	for _, c := range categories {
		names := []string{c.Name}
		parent := c.Parent
		for parent != 0 {
			p, ok := byID[parent]
			if !ok {
				break
			}
			names = append(names, p.Name)
			parent = p.Parent
		}
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
		result[c.ID] = strings.Join(names, "/")
	}
	return result
}

// ExtractDepartment returns the second level of a category path, which
// is where the institution keeps departments.
func ExtractDepartment(categoryPath string) string {
	if categoryPath == "" {
		return "OTRO"
	}
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(categoryPath, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "Otros"
	}
	return parts[1]
}

// SanitizeSubjectCode reduces a course shortname to its leading subject
// code, cutting at the first separator.
func SanitizeSubjectCode(shortname string) string {
	if shortname == "" {
		return "NO_CODE"
	}
	code := strings.FieldsFunc(shortname, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	if len(code) == 0 {
		return "NO_CODE"
	}
	return strings.TrimSpace(code[0])
}

// SanitizeCourseName keeps only the part before the first hyphen, which
// drops instructor suffixes like "Ciudadanía - D. Leal".
func SanitizeCourseName(fullname string) string {
	if fullname == "" {
		return "SIN NOMBRE"
	}
	name := strings.SplitN(fullname, "-", 2)[0]
	return strings.TrimSpace(name)
}
