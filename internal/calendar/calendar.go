// Package calendar implements the month arithmetic used for installment due
// dates and statement periods. All dates are calendar days at midnight UTC.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and input format for calendar dates.
const DateLayout = "2006-01-02"

// MonthPolicy decides what happens when adding months lands on a day the
// target month does not have.
type MonthPolicy string

const (
	// Overflow lets the extra days spill into the following month,
	// so Jan 31 + 1 month is Mar 3 (Mar 2 in leap years).
	Overflow MonthPolicy = "overflow"
	// Clamp pins the day to the last day of the target month.
	Clamp MonthPolicy = "clamp"
)

// ParseMonthPolicy accepts "overflow" or "clamp". Empty means Overflow.
func ParseMonthPolicy(s string) (MonthPolicy, error) {
	switch MonthPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Overflow:
		return Overflow, nil
	case Clamp:
		return Clamp, nil
	}
	return "", fmt.Errorf("unknown month policy %q", s)
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping t's calendar date.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonths advances t by n calendar months under the given policy.
func AddMonths(t time.Time, n int, policy MonthPolicy) time.Time {
	if policy == Clamp {
		first := Date(t.Year(), t.Month()+time.Month(n), 1)
		day := min(t.Day(), DaysIn(first.Year(), first.Month()))
		return Date(first.Year(), first.Month(), day)
	}
	return Date(t.Year(), t.Month()+time.Month(n), t.Day())
}

var dateStyles = map[string]string{
	"dd/mm/yyyy": "02/01/2006",
	"mm/dd/yyyy": "01/02/2006",
	"yyyy-mm-dd": DateLayout,
}

// FormatDate renders t in one of the user-facing styles ("dd/mm/yyyy",
// "mm/dd/yyyy", "yyyy-mm-dd"). Unknown styles fall back to YYYY-MM-DD.
func FormatDate(t time.Time, style string) string {
	layout, ok := dateStyles[strings.ToLower(style)]
	if !ok {
		layout = DateLayout
	}
	return t.Format(layout)
}

// ValidDateStyle reports whether style is accepted by FormatDate.
func ValidDateStyle(style string) bool {
	_, ok := dateStyles[strings.ToLower(style)]
	return ok
}
