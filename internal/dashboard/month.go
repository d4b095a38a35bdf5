package dashboard

import (
	"fmt"
	"time"
)

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseMonth parses a month picker value of the form YYYY-MM.
func ParseMonth(value string) (year, month int, err error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q: want YYYY-MM", value)
	}
	return t.Year(), int(t.Month()), nil
}

// ValidMonth reports whether year/month can be requested.
func ValidMonth(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range", month)
	}
	if year < 1 || year > 9999 {
		return fmt.Errorf("year %d out of range", year)
	}
	return nil
}

// CurrentMonth is the month picker default.
func CurrentMonth(now time.Time) (year, month int) {
	return now.Year(), int(now.Month())
}
