package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Grade item types as reported by the LMS gradebook export. A "course"
// row carries the aggregated final grade, "category" rows are grouping
// aggregates, and "mod" rows are real activities.
const (
	ItemTypeCourse   = "course"
	ItemTypeCategory = "category"
	ItemTypeModule   = "mod"
)

// OptionalFloat is a numeric field that may be absent. Gradebook exports
// deliver numbers, numeric strings, empty strings or null depending on
// the grading setup; anything that does not parse as a number is treated
// as absent rather than an error.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Float returns an OptionalFloat holding v.
func Float(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

// Or returns the held value, or fallback when absent.
func (f OptionalFloat) Or(fallback float64) float64 {
	if !f.Valid {
		return fallback
	}
	return f.Value
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (f *OptionalFloat) UnmarshalJSON(data []byte) error {
	f.Value, f.Valid = 0, false

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	raw := string(trimmed)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	f.Value, f.Valid = parsed, true
	return nil
}

// MarshalJSON renders the value, or null when absent.
func (f OptionalFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// GradeItem is one gradebook cell for a student. Field semantics follow
// the LMS user grade report: GradeRaw null means the student never
// attempted the item, Overridden non-zero means a human replaced the
// computed value.
type GradeItem struct {
	ItemType        string        `json:"itemtype"`
	ItemModule      string        `json:"itemmodule"`
	GradeMax        OptionalFloat `json:"grademax"`
	GradeRaw        OptionalFloat `json:"graderaw"`
	WeightRaw       OptionalFloat `json:"weightraw"`
	WeightFormatted string        `json:"weightformatted"`
	Feedback        string        `json:"feedback"`
	Overridden      OptionalFloat `json:"overridden"`
}

// IsAggregate reports whether the item is a course or category total
// rather than an actual activity.
func (g GradeItem) IsAggregate() bool {
	return g.ItemType == ItemTypeCourse || g.ItemType == ItemTypeCategory
}

// StudentRecord holds one student's gradebook row. Item order is
// positional: the same index generally refers to the same activity
// across students, though trailing items may be missing.
type StudentRecord struct {
	UserID     int64       `json:"userid"`
	GradeItems []GradeItem `json:"gradeitems"`
}

// FinalGrade returns the raw value of the student's course-total item.
// The boolean is false when no course item exists or it was never graded.
func (s StudentRecord) FinalGrade() (float64, bool) {
	for _, item := range s.GradeItems {
		if item.ItemType == ItemTypeCourse {
			if item.GradeRaw.Valid {
				return item.GradeRaw.Value, true
			}
			return 0, false
		}
	}
	return 0, false
}

// GradeReport is the full gradebook export for one course.
type GradeReport struct {
	Usergrades []StudentRecord `json:"usergrades"`
}
