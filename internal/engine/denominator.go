package engine

import "github.com/edumetrics/lms-kpi-api/internal/models"

// ResolveDenominator computes the expected-completions denominator used
// for density calculations.
//
// A fixed "count every whitelisted column" denominator punishes courses
// with optional or elective assignments, so the denominator is instead
// taken from evidence of success: the highest completed-item count among
// students whose normalized final grade passes. That is what a
// successful student actually needed to do. When nobody passed the
// whitelist cardinality is the fallback, floored at 1 to keep divisions
// safe. Digital-desert courses never reach density math; the returned 1
// is unused there.
func ResolveDenominator(students []models.StudentRecord, wl Whitelist, norm Normalization) int {
	if wl.DigitalDesert {
		return 1
	}

	maxChecksPassed := 0
	passersExist := false

	for _, s := range students {
		if len(s.GradeItems) == 0 {
			continue
		}

		completed := completedItems(s, wl)

		rawFinal, _ := s.FinalGrade()
		if norm.Grade(rawFinal) >= PassingGrade {
			passersExist = true
			if completed > maxChecksPassed {
				maxChecksPassed = completed
			}
		}
	}

	if passersExist && maxChecksPassed > 0 {
		return maxChecksPassed
	}

	if len(wl.Indices) > 0 {
		return len(wl.Indices)
	}
	return 1
}
