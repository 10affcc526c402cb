package listings

import (
	"strings"
	"time"
)

// Period is a listing subscription billing interval.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod falls back to monthly for anything it does not recognise.
func ParsePeriod(raw string) Period {
	if strings.EqualFold(strings.TrimSpace(raw), string(PeriodYearly)) {
		return PeriodYearly
	}
	return PeriodMonthly
}

// Extend adds one calendar interval using time.AddDate normalisation,
// so Jan 31 plus one month lands on Mar 3 (or Mar 2 in leap years).
func (p Period) Extend(from time.Time) time.Time {
	if p == PeriodYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
