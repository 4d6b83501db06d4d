package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// ParseDurationMonths converts a loan term such as "6 months" or "2 years"
// into a number of months. Years are 12 months.
func ParseDurationMonths(duration string) (int, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(duration)))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid duration %q", duration)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", duration)
	}

	switch strings.TrimSuffix(fields[1], "s") {
	case "month":
		return n, nil
	case "year":
		return n * 12, nil
	}
	return 0, fmt.Errorf("invalid duration unit in %q", duration)
}

// ComputeReturn calculates the total amount to be repaid.
// Formula: Principal + Principal * (ratePercent / 100) * years
// The result keeps full precision; round with Round(2) for display.
func ComputeReturn(principal decimal.Decimal, duration string, ratePercent decimal.Decimal) (decimal.Decimal, error) {
	months, err := ParseDurationMonths(duration)
	if err != nil {
		return decimal.Zero, err
	}

	years := decimal.NewFromInt(int64(months)).Div(twelve)
	interest := principal.Mul(ratePercent).Div(hundred).Mul(years)

	return principal.Add(interest), nil
}

// DateOnly strips the time of day, keeping the calendar date of t as seen in
// t's own location. The result is midnight UTC so date differences are exact
// multiples of 24h.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves a date forward by the given number of months, keeping the
// day of month. When the target month is shorter, the day is clamped to its
// last day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// NextCycle returns the due date one payment cycle after from: 7 days for
// weekly plans, one calendar month otherwise.
func NextCycle(from time.Time, weekly bool) time.Time {
	from = DateOnly(from)
	if weekly {
		return from.AddDate(0, 0, 7)
	}
	return AddMonths(from, 1)
}

// DaysBetween returns the number of calendar days from a to b (negative when b
// is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// NewLoanRef generates a human-facing loan reference: LOAN-<year>-<4 hex>.
func NewLoanRef(prefix string, year int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%d-%s", prefix, year, suffix)
}

// NormalizeName trims and lower-cases a customer name for identity checks.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
