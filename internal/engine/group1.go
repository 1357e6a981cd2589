package engine

import "github.com/edumetrics/lms-kpi-api/internal/models"

// Group1Result holds the academic-results indicator group: compliance,
// approval, grade distribution, activity and completion. Process
// indicators (compliance, completion) are nil for digital deserts,
// where "completed digital work" is undefined. Each ratio carries its
// integer components so upstream aggregation can weight courses by
// population instead of averaging percentages.
type Group1Result struct {
	ProcessedStudents int
	DigitalDesert     bool
	Denominator       int

	Compliance    *float64
	ComplianceNum int
	ComplianceDen int

	Approval    float64
	ApprovalNum int
	ApprovalDen int

	GradeMean   float64
	GradeMedian float64
	GradeStdDev float64

	Participation    float64
	ParticipationNum int
	ParticipationDen int

	Completion    *float64
	CompletionNum int
	CompletionDen int
}

// ComputeResults derives the group-1 indicators for one course. It
// returns nil when the gradebook cannot support statistically meaningful
// indicators: an empty report, no gradebook columns at all, or fewer
// than MinStudentsRequired valid participants. That outcome is expected
// and frequent, never an error.
func ComputeResults(report *models.GradeReport) *Group1Result {
	if report == nil || len(report.Usergrades) < MinStudentsRequired {
		return nil
	}
	students := report.Usergrades

	maxCols := 0
	for _, s := range students {
		if len(s.GradeItems) > maxCols {
			maxCols = len(s.GradeItems)
		}
	}
	if maxCols == 0 {
		return nil
	}

	norm := DetectScale(students)
	wl := BuildWhitelist(students)
	denominator := ResolveDenominator(students, wl, norm)

	totalChecksRealized := 0
	totalChecksCapacity := 0
	countActive := 0
	countFinishers := 0
	totalEnrolled := 0
	validStudents := 0

	var allGrades []float64
	var gradesForAverage []float64

	for _, s := range students {
		totalEnrolled++

		c := ClassifyStudent(s, wl, denominator, norm)
		if !wl.DigitalDesert {
			totalChecksRealized += c.Completed
		}
		if !c.Participant {
			continue
		}

		validStudents++
		if c.Active {
			countActive++
		}
		if c.Finisher {
			countFinishers++
		}

		allGrades = append(allGrades, c.Grade)
		if c.Active && c.Grade >= 0.5 {
			// True zeros and near-zeros would skew central tendency.
			gradesForAverage = append(gradesForAverage, c.Grade)
		}

		if !wl.DigitalDesert {
			totalChecksCapacity += denominator
		}
	}

	if validStudents < MinStudentsRequired {
		return nil
	}

	result := &Group1Result{
		ProcessedStudents: validStudents,
		DigitalDesert:     wl.DigitalDesert,
		Denominator:       denominator,
		GradeMean:         round2(mean(gradesForAverage)),
		GradeMedian:       round2(median(gradesForAverage)),
		GradeStdDev:       round2(stdDev(gradesForAverage)),
	}

	passing := 0
	for _, g := range allGrades {
		if g >= PassingGrade {
			passing++
		}
	}
	result.Approval = round2(float64(passing) / float64(validStudents) * 100)
	result.ApprovalNum = passing
	result.ApprovalDen = validStudents

	result.ParticipationNum = countActive
	result.ParticipationDen = totalEnrolled
	if totalEnrolled > 0 {
		result.Participation = round2(float64(countActive) / float64(totalEnrolled) * 100)
	}

	if !wl.DigitalDesert {
		completion := round2(float64(countFinishers) / float64(validStudents) * 100)
		result.Completion = floatPtr(completion)
		result.CompletionNum = countFinishers
		result.CompletionDen = validStudents

		compliance := 0.0
		if totalChecksCapacity > 0 {
			compliance = float64(totalChecksRealized) / float64(totalChecksCapacity) * 100
		}
		if compliance > 100.0 {
			compliance = 100.0
		}
		result.Compliance = floatPtr(round2(compliance))
		result.ComplianceNum = totalChecksRealized
		result.ComplianceDen = totalChecksCapacity
	}

	return result
}
