package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

// exampleReport builds the canonical six-student course: base-100 final
// grades plus two weighted assignment columns.
func exampleReport() *models.GradeReport {
	finals := []float64{95, 85, 40, 92, 0, 78}
	completions := []int{2, 2, 2, 2, 0, 2}

	students := make([]models.StudentRecord, len(finals))
	for i := range finals {
		items := []models.GradeItem{{
			ItemType: models.ItemTypeCourse,
			GradeMax: models.Float(100),
			GradeRaw: models.Float(finals[i]),
		}}
		for col := 0; col < 2; col++ {
			item := models.GradeItem{
				ItemType:   models.ItemTypeModule,
				ItemModule: "assign",
				GradeMax:   models.Float(10),
				WeightRaw:  models.Float(0.5),
			}
			if col < completions[i] {
				item.GradeRaw = models.Float(8)
			}
			items = append(items, item)
		}
		students[i] = models.StudentRecord{GradeItems: items}
	}
	return &models.GradeReport{Usergrades: students}
}

func TestComputeResultsEndToEnd(t *testing.T) {
	result := ComputeResults(exampleReport())
	require.NotNil(t, result)

	// Config max 100 with observed max 95: normalization applies.
	// The zero-grade, zero-completion student is not a participant.
	assert.Equal(t, 5, result.ProcessedStudents)
	assert.False(t, result.DigitalDesert)

	// Normalized finals 19, 17, 8, 18.4, 15.6: four of five pass.
	assert.InDelta(t, 80.0, result.Approval, 0.01)
	assert.Equal(t, 4, result.ApprovalNum)
	assert.Equal(t, 5, result.ApprovalDen)

	require.NotNil(t, result.Compliance)
	assert.InDelta(t, 100.0, *result.Compliance, 0.01)

	require.NotNil(t, result.Completion)
	assert.InDelta(t, 100.0, *result.Completion, 0.01)

	// All five participants are active (density 1.0, or passing grade).
	assert.Equal(t, 5, result.ParticipationNum)
	assert.Equal(t, 6, result.ParticipationDen)
}

func TestComputeResultsMinimumPopulationGate(t *testing.T) {
	// Four students, all passing: still statistically insignificant.
	students := []models.StudentRecord{
		courseTotalStudent(20, raw(15)),
		courseTotalStudent(20, raw(16)),
		courseTotalStudent(20, raw(12)),
		courseTotalStudent(20, raw(18)),
	}
	assert.Nil(t, ComputeResults(&models.GradeReport{Usergrades: students}))
}

func TestComputeResultsGateCountsParticipantsNotRows(t *testing.T) {
	// Six enrolled, but two never engaged: 4 participants is below the bar.
	students := []models.StudentRecord{
		courseTotalStudent(20, raw(15)),
		courseTotalStudent(20, raw(16)),
		courseTotalStudent(20, raw(12)),
		courseTotalStudent(20, raw(18)),
		courseTotalStudent(20, raw(0)),
		courseTotalStudent(20, nil),
	}
	assert.Nil(t, ComputeResults(&models.GradeReport{Usergrades: students}))
}

func TestComputeResultsEmptyAndNilReports(t *testing.T) {
	assert.Nil(t, ComputeResults(nil))
	assert.Nil(t, ComputeResults(&models.GradeReport{}))

	// Rows exist but carry no grade items at all.
	blank := make([]models.StudentRecord, 6)
	assert.Nil(t, ComputeResults(&models.GradeReport{Usergrades: blank}))
}

func TestComputeResultsDigitalDesert(t *testing.T) {
	students := []models.StudentRecord{
		courseTotalStudent(20, raw(15)),
		courseTotalStudent(20, raw(12)),
		courseTotalStudent(20, raw(8)),
		courseTotalStudent(20, raw(17)),
		courseTotalStudent(20, raw(11)),
		courseTotalStudent(20, raw(3)),
	}

	result := ComputeResults(&models.GradeReport{Usergrades: students})
	require.NotNil(t, result)

	assert.True(t, result.DigitalDesert)
	assert.Nil(t, result.Compliance)
	assert.Nil(t, result.Completion)
	// Approval still works from final grades alone: 4 of 6 pass.
	assert.InDelta(t, 66.67, result.Approval, 0.01)
}

func TestComputeResultsComplianceBounds(t *testing.T) {
	// Students completing more items than the resolved denominator must
	// not push compliance above 100.
	students := []models.StudentRecord{
		buildStudent(raw(15), 4, 1), // passer with 1 completion sets denominator
		buildStudent(raw(3), 4, 4),
		buildStudent(raw(2), 4, 4),
		buildStudent(raw(1), 4, 4),
		buildStudent(raw(4), 4, 4),
	}

	result := ComputeResults(&models.GradeReport{Usergrades: students})
	require.NotNil(t, result)
	require.NotNil(t, result.Compliance)
	assert.GreaterOrEqual(t, *result.Compliance, 0.0)
	assert.LessOrEqual(t, *result.Compliance, 100.0)
}

// Two gradebooks identical up to a consistent scale factor must yield
// the same normalized statistics.
func TestComputeResultsScaleInvariance(t *testing.T) {
	finals20 := []float64{19, 17, 8, 18.4, 12, 15.6}

	build := func(scale float64) *models.GradeReport {
		students := make([]models.StudentRecord, len(finals20))
		for i, f := range finals20 {
			students[i] = courseTotalStudent(20*scale, raw(f*scale))
		}
		return &models.GradeReport{Usergrades: students}
	}

	base20 := ComputeResults(build(1))
	base100 := ComputeResults(build(5))
	require.NotNil(t, base20)
	require.NotNil(t, base100)

	assert.InDelta(t, base20.Approval, base100.Approval, 0.01)
	assert.InDelta(t, base20.GradeMean, base100.GradeMean, 0.01)
	assert.InDelta(t, base20.GradeMedian, base100.GradeMedian, 0.01)
	assert.InDelta(t, base20.GradeStdDev, base100.GradeStdDev, 0.01)
}

func TestComputeResultsGradeStatsExcludeNearZeros(t *testing.T) {
	students := []models.StudentRecord{
		courseTotalStudent(20, raw(16)),
		courseTotalStudent(20, raw(14)),
		courseTotalStudent(20, raw(12)),
		courseTotalStudent(20, raw(10)),
		courseTotalStudent(20, raw(0.2)), // participant, but excluded from stats
	}

	result := ComputeResults(&models.GradeReport{Usergrades: students})
	require.NotNil(t, result)
	assert.InDelta(t, 13.0, result.GradeMean, 0.01)
	assert.InDelta(t, 13.0, result.GradeMedian, 0.01)
}
