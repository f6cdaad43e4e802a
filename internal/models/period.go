package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ReportPeriod is a reporting granularity resolved against an explicit "now"
type ReportPeriod string

const (
	PeriodDay   ReportPeriod = "day"
	PeriodWeek  ReportPeriod = "week"
	PeriodMonth ReportPeriod = "month"
)

// ParsePeriod parses a period string, defaulting to month when empty
func ParsePeriod(s string) (ReportPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PeriodMonth, nil
	case "day":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown period %q (want day, week or month)", s)
}

// Interval is a concrete date range with inclusive bounds. Start < End always
// holds for resolved periods.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within [iv.Start, iv.End]
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Duration returns the span of the interval
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Days returns the number of calendar days covered by the interval
func (iv Interval) Days() int {
	start := time.Date(iv.Start.Year(), iv.Start.Month(), iv.Start.Day(), 0, 0, 0, 0, iv.Start.Location())
	end := time.Date(iv.End.Year(), iv.End.Month(), iv.End.Day(), 0, 0, 0, 0, iv.End.Location())
	// Rounding keeps the count stable across DST transitions
	return int(math.Round(end.Sub(start).Hours()/24)) + 1
}
