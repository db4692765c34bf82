package weather

import (
	"sort"
	"time"
)

// HourWindow returns the half-open sample window [start, end) covering
// horizonHours hourly samples from now. The start is aligned to the top of
// the current hour so vendor hourly arrays, which begin at the current hour,
// line up with the window.
func HourWindow(now time.Time, horizonHours int) (start, end time.Time) {
	start = now.Truncate(time.Hour)
	return start, start.Add(time.Duration(horizonHours) * time.Hour)
}

// DateSpan lists the consecutive calendar dates covered by the half-open
// window [start, end). Day-granularity providers fetch exactly these dates
// and discard out-of-window hours afterwards.
func DateSpan(start, end time.Time) []time.Time {
	if !end.After(start) {
		return []time.Time{startOfDay(start)}
	}
	last := startOfDay(end.Add(-time.Second))
	var days []time.Time
	for d := startOfDay(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ClipToWindow sorts records chronologically, keeps those whose sample time
// falls in [start, end), and truncates to at most n entries.
func ClipToWindow(records []WeatherRecord, start, end time.Time, n int) ForecastResult {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})

	out := make(ForecastResult, 0, n)
	for _, r := range records {
		if len(out) >= n {
			break
		}
		if r.Time.Before(start) || !r.Time.Before(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SmallestBlock picks the smallest of blocks covering hours. Blocks must be
// non-empty and sorted ascending; the largest block is returned when none
// covers the horizon.
func SmallestBlock(blocks []int, hours int) int {
	for _, b := range blocks {
		if b >= hours {
			return b
		}
	}
	return blocks[len(blocks)-1]
}
