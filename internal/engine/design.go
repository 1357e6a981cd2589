package engine

import "github.com/edumetrics/lms-kpi-api/internal/models"

// activeModuleTypes is the pedagogical taxonomy of activity types that
// demand something from the student, as opposed to passive resources
// (files, pages, folders, URLs).
var activeModuleTypes = map[string]bool{
	"assign":      true,
	"quiz":        true,
	"forum":       true,
	"workshop":    true,
	"lesson":      true,
	"choice":      true,
	"feedback":    true,
	"glossary":    true,
	"h5pactivity": true,
}

// EvaluableModuleTypes returns the activity types that back at least one
// whitelisted gradebook column, i.e. the kinds of content actually being
// assessed in this course.
func EvaluableModuleTypes(report *models.GradeReport) map[string]bool {
	if report == nil {
		return map[string]bool{}
	}
	return BuildWhitelist(report.Usergrades).ModuleTypes
}

// DesignMetrics holds the instructional-design indicator group.
type DesignMetrics struct {
	// ActiveMethodology: share of visible modules using active pedagogy.
	ActiveMethodology    float64
	ActiveMethodologyNum int
	ActiveMethodologyDen int

	// EvaluationRatio: share of active modules whose type is actually
	// assessed, separating present-but-decorative content from content
	// wired into the gradebook.
	EvaluationRatio    float64
	EvaluationRatioNum int
	EvaluationRatioDen int
}

// ComputeDesign classifies every visible module in the course structure
// against the active-pedagogy taxonomy and measures evaluation coverage
// using the gradebook whitelist. Returns nil when the course has no
// content structure to analyze.
func ComputeDesign(sections []models.CourseSection, report *models.GradeReport) *DesignMetrics {
	if len(sections) == 0 {
		return nil
	}

	evaluable := EvaluableModuleTypes(report)

	totalVisible := 0
	totalActive := 0
	evaluatedActive := 0

	for _, section := range sections {
		for _, module := range section.Modules {
			if !module.IsVisible() {
				continue
			}
			totalVisible++

			if !activeModuleTypes[module.ModName] {
				continue
			}
			totalActive++
			if evaluable[module.ModName] {
				evaluatedActive++
			}
		}
	}

	metrics := &DesignMetrics{
		ActiveMethodologyNum: totalActive,
		ActiveMethodologyDen: totalVisible,
		EvaluationRatioNum:   evaluatedActive,
		EvaluationRatioDen:   totalActive,
	}
	if totalVisible > 0 {
		metrics.ActiveMethodology = round2(float64(totalActive) / float64(totalVisible) * 100)
	}
	if totalActive > 0 {
		metrics.EvaluationRatio = round2(float64(evaluatedActive) / float64(totalActive) * 100)
	}

	return metrics
}
