package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

func assignItem(gradeMax float64, graded bool, weight *float64) models.GradeItem {
	item := models.GradeItem{
		ItemType:   models.ItemTypeModule,
		ItemModule: "assign",
		GradeMax:   models.Float(gradeMax),
	}
	if graded {
		item.GradeRaw = models.Float(gradeMax / 2)
	}
	if weight != nil {
		item.WeightRaw = models.Float(*weight)
	}
	return item
}

func TestBuildWhitelistExplicitWeightsDiscardZeroWeight(t *testing.T) {
	weighted := 0.5
	zero := 0.0
	students := make([]models.StudentRecord, 6)
	for i := range students {
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{
			{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20)},
			assignItem(10, true, &weighted),
			assignItem(10, true, &zero),
		}}
	}

	wl := BuildWhitelist(students)
	require.Equal(t, []int{1}, wl.Indices)
	assert.False(t, wl.DigitalDesert)
	assert.True(t, wl.ModuleTypes["assign"])
}

func TestBuildWhitelistParticipationFallback(t *testing.T) {
	// No explicit weights anywhere: columns survive on participation.
	students := make([]models.StudentRecord, 20)
	for i := range students {
		popular := assignItem(10, true, nil)
		unused := assignItem(10, false, nil)
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{popular, unused}}
	}
	// Give the second column a single participant: 1/20 = 5% exactly.
	students[0].GradeItems[1].GradeRaw = models.Float(4)

	wl := BuildWhitelist(students)
	assert.Equal(t, []int{0, 1}, wl.Indices)
}

func TestBuildWhitelistDropsLowParticipation(t *testing.T) {
	students := make([]models.StudentRecord, 30)
	for i := range students {
		popular := assignItem(10, true, nil)
		rare := assignItem(10, false, nil)
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{popular, rare}}
	}
	// 1/30 is below the 5% floor.
	students[0].GradeItems[1].GradeRaw = models.Float(4)

	wl := BuildWhitelist(students)
	assert.Equal(t, []int{0}, wl.Indices)
}

func TestBuildWhitelistExcludesAggregatesAndPointlessItems(t *testing.T) {
	students := make([]models.StudentRecord, 5)
	for i := range students {
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{
			{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20), GradeRaw: models.Float(15)},
			{ItemType: models.ItemTypeCategory, GradeMax: models.Float(100), GradeRaw: models.Float(50)},
			assignItem(0, true, nil),
		}}
	}

	wl := BuildWhitelist(students)
	assert.Empty(t, wl.Indices)
	assert.True(t, wl.DigitalDesert)
}

func TestBuildWhitelistDigitalDesertDetection(t *testing.T) {
	// Gradebook where every non-aggregate column has no achievable
	// points: the LMS is a file repository here.
	students := make([]models.StudentRecord, 8)
	for i := range students {
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{
			{ItemType: models.ItemTypeCourse, GradeMax: models.Float(20), GradeRaw: models.Float(12)},
			assignItem(0, false, nil),
			assignItem(0, false, nil),
		}}
	}

	wl := BuildWhitelist(students)
	assert.True(t, wl.DigitalDesert)
}

func TestBuildWhitelistZeroWeightFormatted(t *testing.T) {
	students := make([]models.StudentRecord, 6)
	for i := range students {
		real := assignItem(10, true, nil)
		real.WeightFormatted = "25.00 %"
		noise := assignItem(10, true, nil)
		noise.WeightFormatted = "0.00 %"
		students[i] = models.StudentRecord{GradeItems: []models.GradeItem{real, noise}}
	}

	wl := BuildWhitelist(students)
	assert.Equal(t, []int{0}, wl.Indices)
}

func TestCompletedItemsBoundsChecked(t *testing.T) {
	wl := Whitelist{Indices: []int{0, 1, 5}}
	short := models.StudentRecord{GradeItems: []models.GradeItem{
		assignItem(10, true, nil),
	}}

	assert.Equal(t, 1, completedItems(short, wl))
}
