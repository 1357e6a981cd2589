package engine

import "github.com/edumetrics/lms-kpi-api/internal/models"

// StudentClass is the per-student classification feeding aggregation.
type StudentClass struct {
	// Participant marks students with any engagement signal: a final
	// grade above noise level or at least one completed whitelisted
	// item. Everyone else is an enrolled-but-never-engaged account and
	// is excluded from course statistics entirely.
	Participant bool
	// Grade is the normalized final grade, capped at the target scale.
	Grade     float64
	Completed int
	// Active: enough completion density, or a passing grade regardless
	// of digital footprint.
	Active bool
	// Finisher requires the strict density threshold; a grade alone
	// never qualifies. Meaningless (always false) in digital deserts.
	Finisher bool
}

// ClassifyStudent evaluates one student against the course whitelist,
// the resolved denominator and the normalization strategy.
func ClassifyStudent(s models.StudentRecord, wl Whitelist, denominator int, norm Normalization) StudentClass {
	var c StudentClass

	rawFinal, hasFinal := s.FinalGrade()

	if !wl.DigitalDesert {
		c.Completed = completedItems(s, wl)
	}

	c.Participant = (hasFinal && rawFinal >= 0.1) || c.Completed > 0
	if !c.Participant {
		return c
	}

	if hasFinal {
		c.Grade = norm.Grade(rawFinal)
	}

	if wl.DigitalDesert {
		// Analog mode: the only signal left is the final grade.
		c.Active = hasFinal && c.Grade >= 0.1
		return c
	}

	if denominator < 1 {
		denominator = 1
	}
	density := float64(c.Completed) / float64(denominator)
	c.Active = density >= DensityActive || c.Grade >= PassingGrade
	c.Finisher = density >= DensityComplete

	return c
}
