// Package utils has small helpers shared by the pipeline stages.
package utils

import (
	"sort"
	"time"
)

// SortDates sorts dates ascending or descending in place and returns them.
func SortDates(dates []time.Time, asc bool) []time.Time {
	sort.Slice(dates, func(i, j int) bool {
		if asc {
			return dates[i].Before(dates[j])
		}
		return dates[i].After(dates[j])
	})
	return dates
}

// GetSortedKeys returns the time keys of a map in sorted order. Scene and
// slice maps are keyed by acquisition time throughout the pipeline, so this
// is the canonical way to walk them deterministically.
func GetSortedKeys[T any](m map[time.Time]T, asc bool) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return SortDates(keys, asc)
}

// FloorToDay truncates a timestamp to midnight UTC of its calendar day.
// Same-day mosaicking groups scenes by this value.
func FloorToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
