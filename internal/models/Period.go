package models

import "strings"

type Period string

const (
	Period7Days   Period = "7_days"
	Period30Days  Period = "30_days"
	Period6Months Period = "6_months"
	Period1Year   Period = "1_year"
	PeriodAllTime Period = "all_time"

	DefaultPeriod = PeriodAllTime
)

var periods = []Period{Period7Days, Period30Days, Period6Months, Period1Year, PeriodAllTime}

// Periods returns the supported time windows in display order.
func Periods() []Period {
	out := make([]Period, len(periods))
	copy(out, periods)
	return out
}

// NormalizePeriod maps any token outside the enumeration to DefaultPeriod.
// It never fails: a hand-edited address bar degrades to all_time.
func NormalizePeriod(raw string) Period {
	candidate := Period(strings.TrimSpace(raw))
	for _, p := range periods {
		if p == candidate {
			return p
		}
	}
	return DefaultPeriod
}

func (p Period) String() string {
	return string(p)
}
