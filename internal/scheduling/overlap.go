package scheduling

import (
	"sort"
	"time"
)

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time `json:"starts_at"`
	End   time.Time `json:"ends_at"`
}

// Overlaps reports whether two half-open intervals share any instant.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// FindOverlap returns the first colliding pair in the batch, if any.
func FindOverlap(intervals []Interval) (Interval, Interval, bool) {
	if len(intervals) < 2 {
		return Interval{}, Interval{}, false
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	reach := sorted[0]
	for _, cur := range sorted[1:] {
		if cur.Start.Before(reach.End) {
			return reach, cur, true
		}
		if cur.End.After(reach.End) {
			reach = cur
		}
	}
	return Interval{}, Interval{}, false
}
