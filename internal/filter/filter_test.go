package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edumetrics/lms-kpi-api/internal/engine"
)

func strictFilter() *CourseFilter {
	return New(Config{
		BlacklistKeywords:   []string{"PRUEBA", "COPIA", "SANDPIT"},
		ExcludedDepartments: []string{"POSTG", "DIDA"},
		MinStart:            time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
		MaxStart:            time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Unix(),
		Strict:              true,
	})
}

func midWindow() int64 {
	return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC).Unix()
}

func TestCheckMetadata(t *testing.T) {
	f := strictFilter()

	tests := []struct {
		name     string
		fullName string
		path     string
		start    int64
		admit    bool
	}{
		{"regular course", "Matemáticas I 2526-2", "FACES / ECONOMIA", midWindow(), true},
		{"blacklisted keyword", "prueba de concepto", "FACES / ECONOMIA", midWindow(), false},
		{"keyword inside name", "Física (COPIA DE SEGURIDAD)", "FACES", midWindow(), false},
		{"excluded department", "Doctorado Avanzado", "POSTG / DOCTORADOS", midWindow(), false},
		{"department case-insensitive", "Curso", "facultad / dida / área", midWindow(), false},
		{"before window", "Curso Viejo", "FACES", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), false},
		{"after window", "Curso Futuro", "FACES", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := f.CheckMetadata(tt.fullName, tt.path, tt.start)
			assert.Equal(t, tt.admit, v.Admit)
			if !tt.admit {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestCheckMetadataUnboundedWindow(t *testing.T) {
	f := New(Config{})
	v := f.CheckMetadata("Cualquier Curso", "FACES", 0)
	assert.True(t, v.Admit)
}

func healthyResult() *engine.Group1Result {
	compliance := 85.0
	return &engine.Group1Result{
		ProcessedStudents: 12,
		GradeMean:         13.4,
		Compliance:        &compliance,
	}
}

func weightedProfile() engine.StructureProfile {
	return engine.StructureProfile{
		NumItems:           5,
		ExplicitWeights:    true,
		DistinctGradeMaxes: 3,
		MaxEffectiveWeight: 0.35,
	}
}

func TestCheckQualityLenientModeAdmitsEverything(t *testing.T) {
	f := New(Config{Strict: false})
	assert.True(t, f.CheckQuality(engine.StructureProfile{}, nil).Admit)
	assert.False(t, f.Strict())
}

func TestCheckQualityHealthyCourse(t *testing.T) {
	v := strictFilter().CheckQuality(weightedProfile(), healthyResult())
	assert.True(t, v.Admit)
	assert.Empty(t, v.Reason)
}

func TestCheckQualityNilResult(t *testing.T) {
	v := strictFilter().CheckQuality(weightedProfile(), nil)
	assert.False(t, v.Admit)
}

func TestCheckQualityLogbookStructure(t *testing.T) {
	// Many tiny-weight items and nothing resembling a milestone.
	profile := engine.StructureProfile{
		NumItems:           14,
		ExplicitWeights:    true,
		DistinctGradeMaxes: 2,
		MaxEffectiveWeight: 0.07,
	}

	v := strictFilter().CheckQuality(profile, healthyResult())
	assert.False(t, v.Admit)
}

func TestCheckQualityFlatStructureRescuedByManualGrading(t *testing.T) {
	flat := engine.StructureProfile{
		NumItems:           9,
		DistinctGradeMaxes: 1,
	}

	v := strictFilter().CheckQuality(flat, healthyResult())
	assert.False(t, v.Admit)

	flat.OverrideRatio = 0.95
	v = strictFilter().CheckQuality(flat, healthyResult())
	assert.True(t, v.Admit)
}

func TestCheckQualitySmallFlatGradebookTolerated(t *testing.T) {
	profile := engine.StructureProfile{
		NumItems:           4,
		DistinctGradeMaxes: 1,
	}

	v := strictFilter().CheckQuality(profile, healthyResult())
	assert.True(t, v.Admit)
}

func TestCheckQualityMissingWeight(t *testing.T) {
	profile := weightedProfile()
	profile.MissingWeight = 0.25

	v := strictFilter().CheckQuality(profile, healthyResult())
	assert.False(t, v.Admit)
}

func TestCheckQualityMaturity(t *testing.T) {
	tests := []struct {
		name       string
		mean       float64
		compliance float64
		admit      bool
	}{
		{"placeholder course", 0, 90, false},
		{"too early", 3.0, 40, false},
		{"too early rescued by compliance", 3.0, 85, true},
		{"incomplete middle", 7.0, 50, false},
		{"failing but fully graded", 7.0, 75, true},
		{"passing average", 12.0, 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.compliance
			result := &engine.Group1Result{
				ProcessedStudents: 10,
				GradeMean:         tt.mean,
				Compliance:        &c,
			}
			v := strictFilter().CheckQuality(weightedProfile(), result)
			assert.Equal(t, tt.admit, v.Admit, v.Reason)
		})
	}
}

func TestCheckQualityDigitalDesert(t *testing.T) {
	desert := &engine.Group1Result{
		ProcessedStudents: 8,
		DigitalDesert:     true,
		GradeMean:         11.2,
	}

	// No compliance to judge; grades alone carry the decision.
	v := strictFilter().CheckQuality(engine.StructureProfile{}, desert)
	assert.True(t, v.Admit)

	desert.GradeMean = 0
	v = strictFilter().CheckQuality(engine.StructureProfile{}, desert)
	assert.False(t, v.Admit)
}
