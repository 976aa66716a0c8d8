// Package schedule turns a cadence report into concrete upcoming times.
package schedule

import (
	"time"

	"personalens/internal/analytics"
	"personalens/internal/model"
)

// NextPeak returns the next hour boundary at or after now that falls in the
// account's busiest band on its busiest weekday (UTC). ok is false when the
// report is empty.
func NextPeak(now time.Time, report model.CadenceReport) (time.Time, bool) {
	day, band := analytics.PeakDay(report), analytics.PeakBand(report)
	if day == analytics.NoPeak || band == analytics.NoPeak {
		return time.Time{}, false
	}
	now = now.UTC()
	start := now.Truncate(time.Hour)
	if start.Before(now) {
		start = start.Add(time.Hour)
	}
	for i := 0; i < 8*24; i++ { // search a little over a week ahead
		cand := start.Add(time.Duration(i) * time.Hour)
		if cand.Weekday().String() == day && analytics.BandLabel(cand.Hour()) == band {
			return cand, true
		}
	}
	return time.Time{}, false
}
