// Package period resolves the academic period a course belongs to.
//
// Course names carry a period tag (four-digit academic year code plus a
// term digit, e.g. "2526-1") which is treated as the source of truth.
// Courses without a tag fall back to their start date.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period identifies one academic term.
type Period struct {
	// TimeID is the dimension key, year code plus term ("25261").
	TimeID string
	// Name is the display form ("2526-1").
	Name string
	// Year is the calendar year used for reporting.
	Year int
	// Term is "1", "2", "3" or "I" (intensive).
	Term string
}

var nameTag = regexp.MustCompile(`(\d{4})[-_\s]?([123Ii])`)

// Resolve determines the academic period for a course, preferring the
// name tag over the start date.
func Resolve(courseFullName string, startTimestamp int64) Period {
	if m := nameTag.FindStringSubmatch(courseFullName); m != nil {
		yearCode := m[1]
		term := strings.ToUpper(m[2])
		startYY, _ := strconv.Atoi(yearCode[:2])
		return Period{
			TimeID: yearCode + term,
			Name:   yearCode + "-" + term,
			Year:   2000 + startYY,
			Term:   term,
		}
	}
	return fromDate(time.Unix(startTimestamp, 0))
}

func fromDate(start time.Time) Period {
	month, year := int(start.Month()), start.Year()

	var startYear, endYear int
	var term string
	switch {
	case month >= 9:
		startYear, endYear, term = year, year+1, "1"
	case month <= 3:
		startYear, endYear, term = year-1, year, "2"
	case month <= 6:
		startYear, endYear, term = year-1, year, "3"
	default: // July and August
		startYear, endYear, term = year-1, year, "I"
	}

	yearCode := fmt.Sprintf("%02d%02d", startYear%100, endYear%100)
	return Period{
		TimeID: yearCode + term,
		Name:   yearCode + "-" + term,
		Year:   year,
		Term:   term,
	}
}

// ReadyForAnalysis reports whether a term's grades are final enough to
// analyze at the given instant, following the institutional calendar:
// term 1 closes in December, term 2 in April, term 3 in July and the
// intensive term in September.
func ReadyForAnalysis(timeID string, now time.Time) bool {
	if len(timeID) != 5 {
		return false
	}
	startYY, err := strconv.Atoi(timeID[:2])
	if err != nil {
		return false
	}
	endYY, err := strconv.Atoi(timeID[2:4])
	if err != nil {
		return false
	}
	startYear := 2000 + startYY
	endYear := 2000 + endYY

	var ready time.Time
	switch timeID[4:] {
	case "1":
		ready = time.Date(startYear, time.December, 1, 0, 0, 0, 0, time.UTC)
	case "2":
		ready = time.Date(endYear, time.April, 1, 0, 0, 0, 0, time.UTC)
	case "3":
		ready = time.Date(endYear, time.July, 1, 0, 0, 0, 0, time.UTC)
	case "I":
		ready = time.Date(endYear, time.September, 1, 0, 0, 0, 0, time.UTC)
	default:
		return false
	}
	return !now.Before(ready)
}
