package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/lms-kpi-api/internal/filter"
	"github.com/edumetrics/lms-kpi-api/internal/models"
	appErrors "github.com/edumetrics/lms-kpi-api/pkg/errors"
	"github.com/edumetrics/lms-kpi-api/pkg/jobs"
)

type mockLMS struct {
	categoriesFn  func(ctx context.Context) ([]models.Category, error)
	coursesFn     func(ctx context.Context) ([]models.Course, error)
	gradeReportFn func(ctx context.Context, courseID int64) (*models.GradeReport, error)
	contentsFn    func(ctx context.Context, courseID int64) ([]models.CourseSection, error)
	enrolledFn    func(ctx context.Context, courseID int64) ([]models.EnrolledUser, error)
}

func (m *mockLMS) Categories(ctx context.Context) ([]models.Category, error) {
	return m.categoriesFn(ctx)
}

func (m *mockLMS) Courses(ctx context.Context) ([]models.Course, error) {
	return m.coursesFn(ctx)
}

func (m *mockLMS) GradeReport(ctx context.Context, courseID int64) (*models.GradeReport, error) {
	return m.gradeReportFn(ctx, courseID)
}

func (m *mockLMS) CourseContents(ctx context.Context, courseID int64) ([]models.CourseSection, error) {
	return m.contentsFn(ctx, courseID)
}

func (m *mockLMS) EnrolledUsers(ctx context.Context, courseID int64) ([]models.EnrolledUser, error) {
	return m.enrolledFn(ctx, courseID)
}

type mockStore struct {
	mu     sync.Mutex
	saved  []*models.CourseKPI
	saveFn func(ctx context.Context, kpi *models.CourseKPI) error
}

func (m *mockStore) Save(ctx context.Context, kpi *models.CourseKPI) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, kpi)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, kpi)
	return nil
}

func healthyGradeReport() *models.GradeReport {
	finals := []float64{15, 16, 12, 18, 11, 14}
	students := make([]models.StudentRecord, len(finals))
	for i, final := range finals {
		students[i] = models.StudentRecord{
			UserID: int64(i + 1),
			GradeItems: []models.GradeItem{
				{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20), GradeRaw: models.Float(final)},
				{ItemType: models.ItemTypeModule, ItemModule: "assign", GradeMax: models.Float(10), GradeRaw: models.Float(7), WeightRaw: models.Float(0.5)},
				{ItemType: models.ItemTypeModule, ItemModule: "quiz", GradeMax: models.Float(20), GradeRaw: models.Float(14), WeightRaw: models.Float(0.5)},
			},
		}
	}
	return &models.GradeReport{Usergrades: students}
}

func defaultCategories() []models.Category {
	return []models.Category{
		{ID: 1, Name: "FACES", Parent: 0},
		{ID: 2, Name: "ECONOMIA", Parent: 1},
	}
}

func newTestPipeline(lmsClient LMSClient, store KPIStore) *PipelineService {
	f := filter.New(filter.Config{
		BlacklistKeywords: []string{"PRUEBA", "COPIA"},
		MinStart:          time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
		MaxStart:          time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Unix(),
		Strict:            true,
	})
	pool := jobs.NewPool(jobs.PoolConfig{Workers: 2})
	svc := NewPipelineService(lmsClient, store, f, pool, nil, nil, PipelineConfig{
		Workers:   2,
		StartDate: "2025-09-01",
		EndDate:   "2026-08-31",
	})
	svc.now = func() time.Time {
		return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestPipelineRunEndToEnd(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).Unix()
	lmsClient := &mockLMS{
		categoriesFn: func(context.Context) ([]models.Category, error) {
			return defaultCategories(), nil
		},
		coursesFn: func(context.Context) ([]models.Course, error) {
			return []models.Course{
				{ID: 31388, FullName: "Matemáticas Básicas 2526-1", ShortName: "FBPMM05-31388", CategoryID: 2, StartDate: start},
				{ID: 31389, FullName: "PRUEBA de migración 2526-1", ShortName: "TEST01", CategoryID: 2, StartDate: start},
			}, nil
		},
		gradeReportFn: func(_ context.Context, courseID int64) (*models.GradeReport, error) {
			return healthyGradeReport(), nil
		},
		contentsFn: func(context.Context, int64) ([]models.CourseSection, error) {
			return []models.CourseSection{{Modules: []models.ModuleRecord{
				{ModName: "assign", Visible: 1},
				{ModName: "quiz", Visible: 1},
				{ModName: "resource", Visible: 1},
			}}}, nil
		},
		enrolledFn: func(context.Context, int64) ([]models.EnrolledUser, error) {
			return []models.EnrolledUser{
				{ID: 500, FullName: "Pedro Alumno", Roles: []models.UserRole{{RoleID: 5}}},
				{ID: 100, FullName: "Ana Díaz", Roles: []models.UserRole{{RoleID: 3}}},
			}, nil
		},
	}
	store := &mockStore{}
	svc := newTestPipeline(lmsClient, store)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	// The blacklisted course never reaches the queue.
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.TotalCourses)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	require.NotNil(t, run.FinishedAt)

	require.Len(t, store.saved, 1)
	kpi := store.saved[0]
	assert.Equal(t, int64(31388), kpi.CourseID)
	assert.Equal(t, "FBPMM05", kpi.SubjectID)
	assert.Equal(t, "Matemáticas Básicas 2526", kpi.CourseName)
	assert.Equal(t, "ECONOMIA", kpi.Department)
	assert.Equal(t, "25261", kpi.TimeID)
	assert.Equal(t, "2526-1", kpi.PeriodName)
	assert.Equal(t, int64(100), kpi.InstructorID)
	assert.Equal(t, "Ana Díaz", kpi.InstructorName)
	assert.Equal(t, 6, kpi.ProcessedStudents)
	require.NotNil(t, kpi.ActiveMethodology)
	assert.InDelta(t, 66.67, *kpi.ActiveMethodology, 0.01)
	require.NotNil(t, kpi.EvaluationRatio)
	assert.InDelta(t, 100.0, *kpi.EvaluationRatio, 0.01)
}

func TestPipelineRunSkipsThinGradebooks(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).Unix()
	lmsClient := &mockLMS{
		categoriesFn: func(context.Context) ([]models.Category, error) {
			return defaultCategories(), nil
		},
		coursesFn: func(context.Context) ([]models.Course, error) {
			return []models.Course{
				{ID: 7, FullName: "Seminario 2526-1", ShortName: "SEM01", CategoryID: 2, StartDate: start},
			}, nil
		},
		gradeReportFn: func(context.Context, int64) (*models.GradeReport, error) {
			return &models.GradeReport{Usergrades: []models.StudentRecord{
				{GradeItems: []models.GradeItem{{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20), GradeRaw: models.Float(15)}}},
			}}, nil
		},
		contentsFn: func(context.Context, int64) ([]models.CourseSection, error) { return nil, nil },
		enrolledFn: func(context.Context, int64) ([]models.EnrolledUser, error) { return nil, nil },
	}
	store := &mockStore{}
	svc := newTestPipeline(lmsClient, store)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Skipped)
	assert.Empty(t, store.saved)
	require.Len(t, run.Outcomes, 1)
	assert.Equal(t, models.CourseOutcomeSkipped, run.Outcomes[0].Status)
	assert.Equal(t, "insufficient gradebook data", run.Outcomes[0].Reason)
}

func TestPipelineRunRecordsPersistenceErrors(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).Unix()
	lmsClient := &mockLMS{
		categoriesFn: func(context.Context) ([]models.Category, error) {
			return defaultCategories(), nil
		},
		coursesFn: func(context.Context) ([]models.Course, error) {
			return []models.Course{
				{ID: 7, FullName: "Economía 2526-1", ShortName: "ECO01", CategoryID: 2, StartDate: start},
			}, nil
		},
		gradeReportFn: func(context.Context, int64) (*models.GradeReport, error) {
			return healthyGradeReport(), nil
		},
		contentsFn: func(context.Context, int64) ([]models.CourseSection, error) { return nil, nil },
		enrolledFn: func(context.Context, int64) ([]models.EnrolledUser, error) { return nil, nil },
	}
	store := &mockStore{saveFn: func(context.Context, *models.CourseKPI) error {
		return errors.New("connection refused")
	}}
	svc := newTestPipeline(lmsClient, store)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Outcomes, 1)
	assert.Equal(t, models.CourseOutcomeError, run.Outcomes[0].Status)
	assert.Contains(t, run.Outcomes[0].Reason, "persist")
}

func TestPipelineRunFailsWhenCatalogUnavailable(t *testing.T) {
	lmsClient := &mockLMS{
		categoriesFn: func(context.Context) ([]models.Category, error) {
			return nil, errors.New("timeout")
		},
	}
	svc := newTestPipeline(lmsClient, &mockStore{})

	run, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "fetch categories")
}

func TestPipelineSkipsUnreadyTerms(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC).Unix()
	lmsClient := &mockLMS{
		categoriesFn: func(context.Context) ([]models.Category, error) {
			return defaultCategories(), nil
		},
		coursesFn: func(context.Context) ([]models.Course, error) {
			// Term 2 of 2526 closes in April 2026; "now" is February.
			return []models.Course{
				{ID: 9, FullName: "Curso Actual 2526-2", ShortName: "ACT01", CategoryID: 2, StartDate: start},
			}, nil
		},
	}
	store := &mockStore{}
	svc := newTestPipeline(lmsClient, store)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, run.TotalCourses)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}

func TestTriggerRunRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	lmsClient := &mockLMS{
		categoriesFn: func(ctx context.Context) ([]models.Category, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, errors.New("aborted")
		},
	}
	svc := newTestPipeline(lmsClient, &mockStore{})

	run, err := svc.TriggerRun()
	require.NoError(t, err)
	<-started

	_, err = svc.TriggerRun()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunActive.Code, appErrors.FromError(err).Code)

	close(release)
	require.Eventually(t, func() bool {
		snap, err := svc.GetRun(run.ID)
		return err == nil && snap.Status == models.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetRunUnknownID(t *testing.T) {
	svc := newTestPipeline(&mockLMS{}, &mockStore{})
	_, err := svc.GetRun("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBuildCategoryMap(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "FACES", Parent: 0},
		{ID: 2, Name: "ECONOMIA", Parent: 1},
		{ID: 3, Name: "MACRO", Parent: 2},
		{ID: 9, Name: "HUERFANA", Parent: 77},
	}

	m := BuildCategoryMap(categories)
	assert.Equal(t, "FACES", m[1])
	assert.Equal(t, "FACES/ECONOMIA", m[2])
	assert.Equal(t, "FACES/ECONOMIA/MACRO", m[3])
	assert.Equal(t, "HUERFANA", m[9])
}

func TestExtractDepartment(t *testing.T) {
	assert.Equal(t, "ECONOMIA", ExtractDepartment("FACES/ECONOMIA/MACRO"))
	assert.Equal(t, "Otros", ExtractDepartment("FACES"))
	assert.Equal(t, "OTRO", ExtractDepartment(""))
}

func TestSanitizeSubjectCode(t *testing.T) {
	assert.Equal(t, "FBPMM05", SanitizeSubjectCode("FBPMM05-31388"))
	assert.Equal(t, "MAT101", SanitizeSubjectCode("MAT101_2526 1"))
	assert.Equal(t, "ECO", SanitizeSubjectCode("ECO 201"))
	assert.Equal(t, "NO_CODE", SanitizeSubjectCode(""))
}

func TestSanitizeCourseName(t *testing.T) {
	assert.Equal(t, "Ciudadanía", SanitizeCourseName("Ciudadanía - D. Leal"))
	assert.Equal(t, "Física II", SanitizeCourseName("Física II"))
	assert.Equal(t, "SIN NOMBRE", SanitizeCourseName(""))
}
