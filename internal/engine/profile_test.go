package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

func TestProfileStructureWeightedGradebook(t *testing.T) {
	exam := 0.4
	task := 0.15
	bonus := 0.05
	students := make([]models.StudentRecord, 4)
	for i := range students {
		untouched := assignItem(10, false, &bonus)
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{
			{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20), GradeRaw: models.Float(12)},
			assignItem(20, true, &exam),
			assignItem(10, true, &task),
			untouched,
		}}
	}

	profile := ProfileStructure(students)
	assert.Equal(t, 3, profile.NumItems)
	assert.True(t, profile.ExplicitWeights)
	assert.Equal(t, 2, profile.DistinctGradeMaxes)
	assert.InDelta(t, 0.4, profile.MaxEffectiveWeight, 0.001)
	assert.InDelta(t, 0.05, profile.MissingWeight, 0.001)
}

func TestProfileStructureFlatGradebook(t *testing.T) {
	students := make([]models.StudentRecord, 3)
	for i := range students {
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{
			assignItem(20, true, nil),
			assignItem(20, true, nil),
			assignItem(20, false, nil),
		}}
	}

	profile := ProfileStructure(students)
	assert.Equal(t, 3, profile.NumItems)
	assert.False(t, profile.ExplicitWeights)
	assert.Equal(t, 1, profile.DistinctGradeMaxes)
	assert.InDelta(t, 0.0, profile.MissingWeight, 0.001)
}

func TestProfileStructureOverrideRatio(t *testing.T) {
	overridden := assignItem(10, true, nil)
	overridden.Overridden = models.Float(1)
	regular := assignItem(10, true, nil)

	students := []models.StudentRecord{
		{GradeItems: []models.GradeItem{overridden, regular}},
		{GradeItems: []models.GradeItem{overridden, regular}},
	}

	profile := ProfileStructure(students)
	assert.InDelta(t, 0.5, profile.OverrideRatio, 0.001)
}

func TestProfileStructureEmpty(t *testing.T) {
	profile := ProfileStructure(nil)
	assert.Equal(t, 0, profile.NumItems)
	assert.InDelta(t, 0.0, profile.OverrideRatio, 0.001)
}
