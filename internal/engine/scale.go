package engine

import (
	"math"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

// Normalization maps raw final grades onto the base-20 target scale.
type Normalization struct {
	// Apply is false when grades are already on (or close enough to)
	// the target scale and must pass through untouched.
	Apply bool
	// Divisor is the detected source-scale ceiling, valid when Apply is true.
	Divisor float64
}

// Grade converts a raw final grade to the target scale, capped at the
// scale ceiling to guard against malformed source data.
func (n Normalization) Grade(raw float64) float64 {
	value := raw
	if n.Apply && n.Divisor > 0 {
		value = raw / n.Divisor * TargetScale
	}
	if value > TargetScale {
		value = TargetScale
	}
	return value
}

// DetectScale inspects every student's course-total item and decides
// whether (and by what divisor) grades need rescaling.
//
// The configured ceiling is read once, from the first student carrying a
// course item. A ceiling above 25 suggests base-100 grading, but only if
// some student actually scored above a base-20-like value: a course
// configured for 100 where nobody exceeds 22 is treated as a
// misconfigured base-20 gradebook and left alone, otherwise already
// effectively-scaled grades would be divided twice.
func DetectScale(students []models.StudentRecord) Normalization {
	globalMaxObserved := 0.0
	configMaxGrade := 0.0

	for _, student := range students {
		for _, item := range student.GradeItems {
			if item.ItemType != models.ItemTypeCourse {
				continue
			}
			if configMaxGrade == 0.0 {
				configMaxGrade = item.GradeMax.Or(0)
			}
			if item.GradeRaw.Valid && item.GradeRaw.Value > globalMaxObserved {
				globalMaxObserved = item.GradeRaw.Value
			}
			break
		}
	}

	if configMaxGrade > 25.0 {
		if globalMaxObserved > 22.0 {
			return Normalization{Apply: true, Divisor: configMaxGrade}
		}
		// Scale protection: misleading ceiling, grades already base-20-like.
		return Normalization{}
	}

	if configMaxGrade > 0.001 && math.Abs(configMaxGrade-TargetScale) > 0.1 {
		// Small odd scales such as 0-1, 0-5 or 0-10.
		return Normalization{Apply: true, Divisor: configMaxGrade}
	}

	return Normalization{}
}
