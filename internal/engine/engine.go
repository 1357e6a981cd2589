// Package engine derives course-level academic KPIs from raw LMS
// gradebook exports. Gradebooks across an institution are configured
// independently, so the engine has to make deterministic decisions in
// the face of unknown grading scales, missing weights, partial
// enrollment and courses that use the platform as a plain file
// repository. All functions are pure and synchronous: they operate on
// already-fetched data, perform no I/O and hold no shared state, so
// calls are safe to run concurrently across courses.
package engine

// Business thresholds shared across the indicator groups. Grades are
// normalized onto a base-20 scale before any comparison.
const (
	TargetScale  = 20.0
	PassingGrade = 9.5

	// DensityActive and DensityComplete are the completion-density
	// cutoffs for the "active" and "finisher" student classifications.
	DensityActive   = 0.40
	DensityComplete = 0.80

	// MinParticipationRate is the statistical fallback used to keep a
	// column when the gradebook defines no explicit weights.
	MinParticipationRate = 0.05

	// MinStudentsRequired gates the whole course result: fewer valid
	// participants than this and no indicators are produced.
	MinStudentsRequired = 5

	// minEvaluableGradeMax: items with a ceiling at or below this are
	// not real assessments (placeholder rows, text-only columns).
	minEvaluableGradeMax = 0.01
)

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}
