package calendar

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// Period is a calendar month, the unit of a card statement.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// PeriodFromIndex is the inverse of Period.Index.
func PeriodFromIndex(i int) Period {
	year := i / 12
	m := i % 12
	if m < 0 {
		m += 12
		year--
	}
	return Period{Year: year, Month: time.Month(m + 1)}
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parsing period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// Index counts months since year 0, so Index differences are month offsets.
func (p Period) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Add returns the period n months later (earlier for negative n).
func (p Period) Add(n int) Period {
	return PeriodFromIndex(p.Index() + n)
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Start is midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return now.With(Date(p.Year, p.Month, 15)).BeginningOfMonth()
}

// End is the last day of the period at midnight UTC.
func (p Period) End() time.Time {
	return Truncate(now.With(Date(p.Year, p.Month, 15)).EndOfMonth())
}

// Valid reports whether the month is within 1..12.
func (p Period) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DayIn returns the given day of month within p, clamped to the month length.
// Days below 1 are treated as 1.
func DayIn(p Period, day int) time.Time {
	day = max(1, min(day, DaysIn(p.Year, p.Month)))
	return Date(p.Year, p.Month, day)
}
