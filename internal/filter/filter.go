// Package filter centralizes the business rules deciding which courses
// enter the analytics warehouse. Filtering happens in layers: cheap
// metadata checks before any LMS fetch, then structural and maturity
// checks on the computed gradebook when strict quality filtering is
// enabled.
package filter

import (
	"fmt"
	"strings"

	"github.com/edumetrics/lms-kpi-api/internal/engine"
)

const (
	// MaxFlatItems is the largest gradebook a course may have while
	// still being forgiven a completely flat structure.
	MaxFlatItems = 6
	// ManualGradingThreshold is the override ratio at which a flat
	// course is rescued: the instructor clearly grades by hand.
	ManualGradingThreshold = 0.90
	// MaxMissingWeightTolerance caps how much declared grade weight may
	// sit on columns with no data at all. Small bonus activities are
	// fine, an untouched final exam is not.
	MaxMissingWeightTolerance = 0.10

	MinMaturityCompliance = 70.0
	MinAcceptableAvg      = 5.0
	StrictComplianceFloor = 80.0
)

// Verdict is the outcome of one filter decision. Reason is empty when
// the course is admitted.
type Verdict struct {
	Admit  bool
	Reason string
}

func admit() Verdict { return Verdict{Admit: true} }
func reject(reason string, args ...interface{}) Verdict {
	return Verdict{Reason: fmt.Sprintf(reason, args...)}
}

// Config carries the tunable parts of the filter; the thresholds above
// are institutional policy and stay fixed.
type Config struct {
	BlacklistKeywords   []string
	ExcludedDepartments []string
	// MinStart/MaxStart bound the course start date, unix seconds. Zero
	// values disable the corresponding bound.
	MinStart int64
	MaxStart int64
	// Strict enables the structural and maturity layers.
	Strict bool
}

// CourseFilter applies the layered inclusion rules.
type CourseFilter struct {
	blacklist   []string
	departments []string
	minStart    int64
	maxStart    int64
	strict      bool
}

func New(cfg Config) *CourseFilter {
	f := &CourseFilter{
		minStart: cfg.MinStart,
		maxStart: cfg.MaxStart,
		strict:   cfg.Strict,
	}
	for _, k := range cfg.BlacklistKeywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			f.blacklist = append(f.blacklist, k)
		}
	}
	for _, d := range cfg.ExcludedDepartments {
		if d = strings.ToUpper(strings.TrimSpace(d)); d != "" {
			f.departments = append(f.departments, d)
		}
	}
	return f
}

// Strict reports whether the quality layers are enabled.
func (f *CourseFilter) Strict() bool { return f.strict }

// CheckMetadata is the first layer, applied before any gradebook fetch:
// blacklisted names, excluded departments and the configured start-date
// window.
func (f *CourseFilter) CheckMetadata(fullName, categoryPath string, startTS int64) Verdict {
	nameUpper := strings.ToUpper(fullName)
	for _, k := range f.blacklist {
		if strings.Contains(nameUpper, k) {
			return reject("blacklisted name keyword %q", k)
		}
	}

	pathUpper := strings.ToUpper(categoryPath)
	for _, d := range f.departments {
		if strings.Contains(pathUpper, d) {
			return reject("excluded department %q", d)
		}
	}

	if f.minStart > 0 && startTS < f.minStart {
		return reject("starts before the analysis window")
	}
	if f.maxStart > 0 && startTS > f.maxStart {
		return reject("starts after the analysis window")
	}

	return admit()
}

// CheckQuality runs the structural and maturity layers over a computed
// course. With strict mode off every computed course is admitted.
func (f *CourseFilter) CheckQuality(profile engine.StructureProfile, result *engine.Group1Result) Verdict {
	if !f.strict {
		return admit()
	}
	if result == nil {
		return reject("insufficient population")
	}
	if result.ProcessedStudents < engine.MinStudentsRequired {
		return reject("only %d valid students", result.ProcessedStudents)
	}

	if v := checkStructure(profile); !v.Admit {
		return v
	}
	if result.DigitalDesert {
		// No digital footprint to check integrity or compliance against;
		// the grade-based rule still applies.
		if result.GradeMean == 0 {
			return reject("no grading activity")
		}
		return admit()
	}
	if profile.MissingWeight > MaxMissingWeightTolerance {
		return reject("%.0f%% of the grade weight has no data", profile.MissingWeight*100)
	}
	return checkMaturity(result)
}

// checkStructure decides whether the gradebook implies a deliberate
// assessment design. Flat structures are rescued when the instructor
// grades by hand.
func checkStructure(profile engine.StructureProfile) Verdict {
	hierarchical := hasHierarchy(profile)
	if hierarchical || profile.OverrideRatio >= ManualGradingThreshold {
		return admit()
	}
	return reject("flat gradebook with no manual grading")
}

func hasHierarchy(profile engine.StructureProfile) bool {
	if profile.ExplicitWeights {
		// Respect the instructor's design, unless it is a logbook: many
		// items where no single one carries a significant milestone.
		if profile.NumItems > 10 && profile.MaxEffectiveWeight < 0.10 {
			return false
		}
		return true
	}
	// Without weights, identical ceilings on a large gradebook mean no
	// distinction between major exams and minor tasks.
	if profile.DistinctGradeMaxes == 1 && profile.NumItems > MaxFlatItems {
		return false
	}
	return true
}

// checkMaturity rejects courses whose grading is too early in the term
// to report: placeholders, barely-started and half-graded courses.
func checkMaturity(result *engine.Group1Result) Verdict {
	average := result.GradeMean
	if average == 0 {
		return reject("no grading activity")
	}
	if result.Compliance == nil {
		return admit()
	}
	compliance := *result.Compliance
	if average < MinAcceptableAvg && compliance < StrictComplianceFloor {
		return reject("course too early to report (avg %.2f, compliance %.0f%%)", average, compliance)
	}
	if average < engine.PassingGrade && compliance < MinMaturityCompliance {
		return reject("grading incomplete (avg %.2f, compliance %.0f%%)", average, compliance)
	}
	return admit()
}
