package planner

import (
	"sort"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
)

// DayAssignment maps one itinerary day to a city. Transition marks the
// later day of a consecutive pair spent in different cities.
type DayAssignment struct {
	City       string
	Transition bool
}

// SequenceCities spreads the selected cities over the trip days. Each
// region's cities run contiguously, regions ordered by the first city
// selected from them, so the trip never bounces between regions. Day
// counts are proportional, remainder days go to cities in larger region
// groups, and every city keeps at least one day. With fewer days than
// cities only the first duration cities travel.
func SequenceCities(cities []string, duration int) []DayAssignment {
	if duration < 1 || len(cities) == 0 {
		return nil
	}

	selected := dedupe(cities)
	if duration < len(selected) {
		selected = selected[:duration]
	}

	// Group by region, both levels in first-appearance order. Cities the
	// geo tables do not know land in a shared trailing group.
	var regionOrder []string
	grouped := make(map[string][]string)
	for _, city := range selected {
		region, _ := geo.RegionOfCity(city)
		if _, seen := grouped[region]; !seen {
			regionOrder = append(regionOrder, region)
		}
		grouped[region] = append(grouped[region], city)
	}

	type allotment struct {
		city      string
		pos       int
		groupSize int
		days      int
	}
	allot := make([]allotment, 0, len(selected))
	for _, region := range regionOrder {
		for _, city := range grouped[region] {
			allot = append(allot, allotment{
				city:      city,
				pos:       len(allot),
				groupSize: len(grouped[region]),
			})
		}
	}

	base := duration / len(allot)
	rem := duration % len(allot)
	for i := range allot {
		allot[i].days = base
	}

	// Remainder days favor cities traveling with more regional company,
	// earliest selected first.
	order := make([]int, len(allot))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := allot[order[i]], allot[order[j]]
		if a.groupSize != b.groupSize {
			return a.groupSize > b.groupSize
		}
		return a.pos < b.pos
	})
	for k := 0; k < rem; k++ {
		allot[order[k]].days++
	}

	out := make([]DayAssignment, 0, duration)
	for _, a := range allot {
		for d := 0; d < a.days; d++ {
			out = append(out, DayAssignment{City: a.city})
		}
	}
	for i := 1; i < len(out); i++ {
		if out[i].City != out[i-1].City {
			out[i].Transition = true
		}
	}
	return out
}

func dedupe(cities []string) []string {
	seen := make(map[string]struct{}, len(cities))
	out := make([]string, 0, len(cities))
	for _, city := range cities {
		if _, dup := seen[city]; dup {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	return out
}
