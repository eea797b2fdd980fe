package models

import "time"

// Accepted request parameters.
var (
	Timeframes = []string{"1d", "1wk", "1mo"}
	Periods    = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y", "max"}
)

// Default request parameters.
const (
	DefaultTimeframe = "1d"
	DefaultPeriod    = "1y"
)

// maxPeriodYears bounds "max" so providers get a concrete start date.
const maxPeriodYears = 30

// -----------------------------------------------------------------------------

func IsValidTimeframe(tf string) bool {
	return contains(Timeframes, tf)
}

// -----------------------------------------------------------------------------

func IsValidPeriod(p string) bool {
	return contains(Periods, p)
}

// -----------------------------------------------------------------------------

// PeriodStart returns the first instant covered by period when ending at now.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "max":
		return now.AddDate(-maxPeriodYears, 0, 0)
	default:
		return now.AddDate(-1, 0, 0)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
