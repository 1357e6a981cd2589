package engine

import "github.com/edumetrics/lms-kpi-api/internal/models"

// StructureProfile summarizes the shape of a course gradebook for the
// quality filters: how many real columns it has, whether the instructor
// declared weights, how varied the ceilings are, and how much declared
// weight sits on columns nobody ever touched.
type StructureProfile struct {
	// NumItems counts non-aggregate columns with achievable points.
	NumItems int
	// ExplicitWeights is true when any column carries a positive weight.
	ExplicitWeights bool
	// DistinctGradeMaxes counts the different ceilings across columns.
	DistinctGradeMaxes int
	// MaxEffectiveWeight is the largest declared column weight.
	MaxEffectiveWeight float64
	// OverrideRatio is the share of graded column cells the instructor
	// overrode by hand.
	OverrideRatio float64
	// MissingWeight sums the declared weight of columns with zero
	// participants.
	MissingWeight float64
}

// ProfileStructure derives the structural profile of a gradebook.
func ProfileStructure(students []models.StudentRecord) StructureProfile {
	scan := scanColumns(students)

	var profile StructureProfile
	seenMaxes := make(map[float64]bool)

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

		profile.NumItems++
		seenMaxes[meta.GradeMax] = true

		if meta.WeightRaw.Valid && meta.WeightRaw.Value > 0.0001 {
			profile.ExplicitWeights = true
			if meta.WeightRaw.Value > profile.MaxEffectiveWeight {
				profile.MaxEffectiveWeight = meta.WeightRaw.Value
			}
			if scan.participants[idx] == 0 {
				profile.MissingWeight += meta.WeightRaw.Value
			}
		}
	}
	profile.DistinctGradeMaxes = len(seenMaxes)

	graded := 0
	overridden := 0
	for _, s := range students {
		for _, item := range s.GradeItems {
			if item.IsAggregate() || !item.GradeRaw.Valid {
				continue
			}
			graded++
			if item.Overridden.Valid && item.Overridden.Value > 0 {
				overridden++
			}
		}
	}
	if graded > 0 {
		profile.OverrideRatio = float64(overridden) / float64(graded)
	}

	return profile
}
