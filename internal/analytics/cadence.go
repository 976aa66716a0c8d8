// Package analytics buckets posts by when they were published.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"personalens/internal/model"
)

// NoPeak is reported by PeakDay and PeakBand when there is nothing to rank.
const NoPeak = "N/A"

const bandHours = 4

// BandLabel returns the four-hour band an hour of day falls into, e.g. "08-12".
func BandLabel(hour int) string {
	start := (hour / bandHours) * bandHours
	return fmt.Sprintf("%02d-%02d", start, start+bandHours)
}

// Bands lists every band label in order.
func Bands() []string {
	out := make([]string, 0, 24/bandHours)
	for h := 0; h < 24; h += bandHours {
		out = append(out, BandLabel(h))
	}
	return out
}

// Aggregate counts posts per UTC weekday and per four-hour band. Posts with an
// unknown timestamp are skipped; buckets with no posts are absent.
func Aggregate(posts []model.Post) model.CadenceReport {
	report := model.CadenceReport{
		PeakDays:  make(map[string]int),
		PeakHours: make(map[string]int),
	}
	for _, p := range posts {
		if p.TimestampMS <= 0 {
			continue
		}
		t := p.Time()
		report.PeakDays[t.Weekday().String()]++
		report.PeakHours[BandLabel(t.Hour())]++
	}
	return report
}

// SortedDays returns the weekdays present in report, Sunday first.
func SortedDays(report model.CadenceReport) []string {
	var out []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if report.PeakDays[d.String()] > 0 {
			out = append(out, d.String())
		}
	}
	return out
}

// SortedBands returns the bands present in report in clock order.
func SortedBands(report model.CadenceReport) []string {
	out := make([]string, 0, len(report.PeakHours))
	for k, n := range report.PeakHours {
		if n > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// PeakDay is the busiest weekday; ties go to the earlier day of the week.
func PeakDay(report model.CadenceReport) string {
	return peak(SortedDays(report), report.PeakDays)
}

// PeakBand is the busiest band; ties go to the earlier band.
func PeakBand(report model.CadenceReport) string {
	return peak(SortedBands(report), report.PeakHours)
}

func peak(ordered []string, counts map[string]int) string {
	best, bestN := NoPeak, 0
	for _, k := range ordered {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
