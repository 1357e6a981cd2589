package engine

import (
	"strings"

	"github.com/edumetrics/lms-kpi-api/internal/models"
)

// ColumnMetadata captures the shared semantics of one gradebook column,
// read lazily from the first student record exhibiting that index.
// Columns are positional: every student's item list is assumed to line
// up by index, modulo missing trailing items.
type ColumnMetadata struct {
	Type            string
	Module          string
	GradeMax        float64
	WeightRaw       models.OptionalFloat
	WeightFormatted string
}

type columnScan struct {
	meta         []*ColumnMetadata
	participants []int
	totalScanned int
}

func scanColumns(students []models.StudentRecord) columnScan {
	maxCols := 0
	for _, s := range students {
		if len(s.GradeItems) > maxCols {
			maxCols = len(s.GradeItems)
		}
	}

	scan := columnScan{
		meta:         make([]*ColumnMetadata, maxCols),
		participants: make([]int, maxCols),
	}

	for _, s := range students {
		if len(s.GradeItems) == 0 {
			continue
		}
		scan.totalScanned++

		for idx, item := range s.GradeItems {
			if scan.meta[idx] == nil {
				scan.meta[idx] = &ColumnMetadata{
					Type:            item.ItemType,
					Module:          item.ItemModule,
					GradeMax:        item.GradeMax.Or(0),
					WeightRaw:       item.WeightRaw,
					WeightFormatted: item.WeightFormatted,
				}
			}
			if item.GradeRaw.Valid {
				scan.participants[idx]++
			}
		}
	}

	return scan
}

// zeroWeightFormatted reports whether the display weight string denotes
// a zero weight (the LMS renders those as "0.00 %").
func zeroWeightFormatted(wfmt string) bool {
	return wfmt != "" && strings.Contains(wfmt, "0.00")
}

// Whitelist is the set of gradebook columns accepted as genuine
// assessment, plus what that implies about the course.
type Whitelist struct {
	Indices []int
	// ModuleTypes collects the activity types (assign, quiz, ...)
	// behind the accepted columns.
	ModuleTypes map[string]bool
	// DigitalDesert is true when no column survived: the course has no
	// measurable online assessment and is used as a file repository.
	DigitalDesert bool
}

// BuildWhitelist decides which gradebook columns represent genuine,
// weighted, sufficiently-participated assessment.
//
// When the gradebook carries any explicitly positive weight, the filter
// is aggressive: a column with a zero or undefined weight under an
// explicit-weight regime is noise and gets discarded. Without explicit
// weights the decision falls back to participation: a column used by at
// least 5% of students is organically in use. Course and category
// aggregate rows and columns with no achievable points never qualify.
func BuildWhitelist(students []models.StudentRecord) Whitelist {
	scan := scanColumns(students)

	hasPositiveWeights := false
	for _, meta := range scan.meta {
		if meta == nil || meta.Type == models.ItemTypeCourse || meta.Type == models.ItemTypeCategory {
			continue
		}
		if (meta.WeightRaw.Valid && meta.WeightRaw.Value > 0.0001) ||
			(meta.WeightFormatted != "" && !zeroWeightFormatted(meta.WeightFormatted)) {
			hasPositiveWeights = true
			break
		}
	}

	wl := Whitelist{ModuleTypes: make(map[string]bool)}
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

		participation := 0.0
		if scan.totalScanned > 0 {
			participation = float64(scan.participants[idx]) / float64(scan.totalScanned)
		}

		if hasPositiveWeights {
			zeroWeight := (meta.WeightRaw.Valid && meta.WeightRaw.Value <= 0.0001) ||
				zeroWeightFormatted(meta.WeightFormatted)
			if zeroWeight {
				continue
			}
			if !meta.WeightRaw.Valid && participation < MinParticipationRate {
				continue
			}
		} else if participation < MinParticipationRate {
			continue
		}

		wl.Indices = append(wl.Indices, idx)
		if meta.Module != "" {
			wl.ModuleTypes[meta.Module] = true
		}
	}

	wl.DigitalDesert = len(wl.Indices) == 0
	return wl
}

// completedItems counts the whitelisted items a student actually has a
// grade for, bounds-checked because item lists may be short.
func completedItems(s models.StudentRecord, wl Whitelist) int {
	completed := 0
	for _, idx := range wl.Indices {
		if idx >= len(s.GradeItems) {
			continue
		}
		if s.GradeItems[idx].GradeRaw.Valid {
			completed++
		}
	}
	return completed
}
