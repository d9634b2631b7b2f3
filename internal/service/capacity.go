package service

import (
	"fmt"
	"sort"
	"time"
)

const day = 24 * time.Hour

// truncateDay drops the time of day, keeping the calendar date in UTC
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeStay validates a stay and returns its half-open date range.
// A same-day stay is treated as one night.
func normalizeStay(checkIn, checkOut time.Time) (time.Time, time.Time, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check-in and check-out are required", ErrInvalidDateRange)
	}
	in, out := truncateDay(checkIn), truncateDay(checkOut)
	if out.Before(in) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check-out %s is before check-in %s",
			ErrInvalidDateRange, out.Format(time.DateOnly), in.Format(time.DateOnly))
	}
	if out.Equal(in) {
		out = in.AddDate(0, 0, 1)
	}
	return in, out, nil
}

// nights counts the nights in a normalized stay
func nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn) / day)
}

// available derives remaining capacity from the resource total and committed usage
func available(total, committed int) int {
	if committed >= total {
		return 0
	}
	return total - committed
}

// lockOrder returns the distinct resource ids in ascending order
func lockOrder(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}
