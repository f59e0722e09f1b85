package schedule

import (
	"math"
	"time"
)

// Occupancy summarises how many days of a range were covered by bookings.
type Occupancy struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	OccupiedDays int       `json:"occupied_days"`
	TotalDays    int       `json:"total_days"`
	Rate         float64   `json:"occupancy_rate"`
}

// OccupiedDays counts the distinct days of bounds (midnight aligned,
// half-open) touched by at least one interval. Each interval is clamped to
// bounds first, and a day covered by two bookings counts once.
func OccupiedDays(bounds Interval, intervals []Interval) int {
	covered := make(map[time.Time]struct{})
	for _, iv := range intervals {
		c, ok := iv.Clamp(bounds)
		if !ok {
			continue
		}
		for d := Midnight(c.Start); d.Before(c.End); d = d.Add(day) {
			covered[d] = struct{}{}
		}
	}
	return len(covered)
}

// ComputeOccupancy builds the occupancy report of [from, to) for the given
// booked intervals. The rate is a percentage rounded to two decimals.
func ComputeOccupancy(from, to time.Time, intervals []Interval) Occupancy {
	bounds := Interval{Start: Midnight(from), End: Midnight(to)}
	occ := Occupancy{From: bounds.Start, To: bounds.End}
	if !bounds.End.After(bounds.Start) {
		return occ
	}
	occ.TotalDays = int(bounds.End.Sub(bounds.Start) / day)
	occ.OccupiedDays = OccupiedDays(bounds, intervals)
	occ.Rate = math.Round(float64(occ.OccupiedDays)/float64(occ.TotalDays)*10000) / 100
	return occ
}
