package engine

import (
	"strings"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

// BehaviorMetrics holds the grading-behaviour indicator group, computed
// over the raw gradebook without whitelist filtering.
type BehaviorMetrics struct {
	// Excellence: share of finally-graded students whose course total
	// reaches 90% of the configured ceiling.
	Excellence    *float64
	ExcellenceNum int
	ExcellenceDen int

	// FeedbackRate: share of graded activity items carrying written
	// instructor feedback.
	FeedbackRate    *float64
	FeedbackRateNum int
	FeedbackRateDen int
}

// ComputeBehavior measures grading excellence and feedback provision.
// Excellence is a per-student measure against the course-total ceiling;
// feedback is a per-item measure across every graded non-aggregate
// column with achievable points. Returns nil when the gradebook is
// empty or has no columns at all.
func ComputeBehavior(report *models.GradeReport) *BehaviorMetrics {
	if report == nil || len(report.Usergrades) == 0 {
		return nil
	}
	students := report.Usergrades

	scan := scanColumns(students)
	if len(scan.meta) == 0 {
		return nil
	}

	var validIndices []int
	for idx, meta := range scan.meta {
		if meta == nil {
			continue
		}
		if meta.Type == models.ItemTypeCourse || meta.Type == models.ItemTypeCategory {
			continue
		}
		if meta.GradeMax <= minEvaluableGradeMax {
			continue
		}
		validIndices = append(validIndices, idx)
	}

	gradedStudents := 0
	excellentStudents := 0
	gradedItems := 0
	itemsWithFeedback := 0

	for _, s := range students {
		if len(s.GradeItems) == 0 {
			continue
		}

		for _, item := range s.GradeItems {
			if item.ItemType != models.ItemTypeCourse {
				continue
			}
			if item.GradeRaw.Valid {
				gradedStudents++
				ceiling := item.GradeMax.Or(0)
				if ceiling > 0 && item.GradeRaw.Value/ceiling >= 0.9 {
					excellentStudents++
				}
			}
			break
		}

		for _, idx := range validIndices {
			if idx >= len(s.GradeItems) {
				continue
			}
			item := s.GradeItems[idx]
			if !item.GradeRaw.Valid {
				continue
			}
			gradedItems++
			if strings.TrimSpace(item.Feedback) != "" {
				itemsWithFeedback++
			}
		}
	}

	metrics := &BehaviorMetrics{
		ExcellenceNum:   excellentStudents,
		ExcellenceDen:   gradedStudents,
		FeedbackRateNum: itemsWithFeedback,
		FeedbackRateDen: gradedItems,
	}
	if gradedStudents > 0 {
		metrics.Excellence = floatPtr(round2(float64(excellentStudents) / float64(gradedStudents) * 100))
	}
	if gradedItems > 0 {
		metrics.FeedbackRate = floatPtr(round2(float64(itemsWithFeedback) / float64(gradedItems) * 100))
	}

	return metrics
}
