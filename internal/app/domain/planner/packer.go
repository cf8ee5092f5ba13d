// Package planner builds day-by-day itineraries: city sequencing, slot
// packing, travel leg enrichment, quality validation, and the cached,
// deduplicated generation pipeline behind the HTTP surface.
package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/domain/location"
	"github.com/tabiji-app/tabiji/internal/app/domain/scoring"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

const (
	defaultVisitMinutes = 90
	slotGapMinutes      = 30
)

// slotStarts holds the default window opening for each slot, in minutes
// from midnight. Later placements in the same slot start after the
// previous one ends plus a transfer gap.
var slotStarts = map[string]int{
	models.SlotMorning:   9 * 60,
	models.SlotAfternoon: 12*60 + 30,
	models.SlotEvening:   18 * 60,
}

var slotRank = map[string]int{
	models.SlotMorning:   0,
	models.SlotAfternoon: 1,
	models.SlotEvening:   2,
}

type paceTarget struct {
	target int
	cap    int
}

// targetsForPace maps a pace to the number of places a day aims for and
// the per-day cap on any single category.
func targetsForPace(pace string) paceTarget {
	var target int
	switch pace {
	case models.PaceRelaxed:
		target = 3
	case models.PaceFast:
		target = 6
	default:
		target = 4
	}
	return paceTarget{
		target: target,
		cap:    int(math.Ceil(0.5 * float64(target))),
	}
}

// DayContext carries everything the packer needs to fill one day.
type DayContext struct {
	City      string     // normalized city id
	DayIndex  int        // zero-based position in the trip
	Date      *time.Time // nil when the request has no start date
	Interests []string
	Pace      string
	Budget    string
	Party     string
	SavedIDs  map[string]struct{}
	// UsedIDs is trip-wide state: the packer adds every id it places so
	// later days never repeat a stop.
	UsedIDs map[string]struct{}
}

// Packer fills one day at a time. It owns no I/O; the service hands it a
// rank-ordered candidate pool per city.
type Packer struct {
	logger *zap.Logger
}

func NewPacker(logger *zap.Logger) *Packer {
	return &Packer{logger: logger}
}

type dayState struct {
	day            models.Day
	remaining      []models.Location
	categoryCounts map[string]int
	slotCounts     map[string]int
	slotNextStart  map[string]int
	anchor         *models.Coordinates
	placed         int
}

// PackDay fills the three slots of one day from the pool, then keeps
// filling the least-loaded slot until the pace target is met or the pool
// runs dry. A slot that cannot be filled gets a note placeholder, never
// silence. Activities appear in placement order; the first pass covers
// morning, afternoon, evening, and fill-up placements follow.
func (p *Packer) PackDay(pool []models.Location, dctx DayContext) models.Day {
	targets := targetsForPace(dctx.Pace)

	st := &dayState{
		day:            models.Day{CityID: dctx.City, Activities: []models.Activity{}},
		remaining:      make([]models.Location, 0, len(pool)),
		categoryCounts: make(map[string]int),
		slotCounts:     make(map[string]int),
		slotNextStart: map[string]int{
			models.SlotMorning:   slotStarts[models.SlotMorning],
			models.SlotAfternoon: slotStarts[models.SlotAfternoon],
			models.SlotEvening:   slotStarts[models.SlotEvening],
		},
	}
	if dctx.Date != nil {
		st.day.Date = dctx.Date.Format("2006-01-02")
	}
	for _, loc := range pool {
		if _, used := dctx.UsedIDs[loc.ID]; !used {
			st.remaining = append(st.remaining, loc)
		}
	}

	// Minimum pass: one activity per slot.
	for _, slot := range models.Slots {
		if !p.placeOne(st, slot, dctx, targets.cap) {
			st.day.Activities = append(st.day.Activities, noteActivity(slot, dctx.City))
			st.slotCounts[slot]++
		}
	}

	// Fill toward the pace target, least-loaded slot first.
	for st.placed < targets.target {
		progressed := false
		for _, slot := range slotsByFill(st.slotCounts) {
			if p.placeOne(st, slot, dctx, targets.cap) {
				progressed = true
				break
			}
		}
		if !progressed {
			break
		}
	}

	if st.placed < targets.target {
		p.logger.Debug("Day packed below pace target",
			zap.String("city", dctx.City),
			zap.Int("day", dctx.DayIndex),
			zap.Int("placed", st.placed),
			zap.Int("target", targets.target))
	}

	return st.day
}

// placeOne picks the best remaining candidate for a slot and appends it.
// Candidates of the slot's target category are tried first; when none
// qualify the whole pool competes. Returns false when nothing fits.
func (p *Packer) placeOne(st *dayState, slot string, dctx DayContext, categoryCap int) bool {
	targetCategory := slotCategory(dctx.Interests, dctx.DayIndex, st.placed)
	startMin := st.slotNextStart[slot]

	eligible := func(onlyTarget bool) []models.Location {
		out := make([]models.Location, 0, len(st.remaining))
		for _, loc := range st.remaining {
			if st.categoryCounts[loc.Category] >= categoryCap {
				continue
			}
			if onlyTarget && loc.Category != targetCategory {
				continue
			}
			if dctx.Date != nil {
				visit := visitMinutes(loc)
				if !location.OpenDuring(loc.OperatingHours, dctx.Date.Weekday(), startMin, startMin+visit) {
					continue
				}
			}
			out = append(out, loc)
		}
		return out
	}

	candidates := eligible(targetCategory != "")
	if len(candidates) == 0 && targetCategory != "" {
		candidates = eligible(false)
	}
	if len(candidates) == 0 {
		return false
	}

	ranked := scoring.Rank(candidates, scoring.Context{
		Interests: dctx.Interests,
		Pace:      dctx.Pace,
		Budget:    dctx.Budget,
		Party:     dctx.Party,
		City:      dctx.City,
		SavedIDs:  dctx.SavedIDs,
		PlacedIDs: dctx.UsedIDs,
		Anchor:    st.anchor,
	})
	if len(ranked) == 0 {
		return false
	}
	chosen := ranked[0].Location

	visit := visitMinutes(chosen)
	endMin := startMin + visit
	st.day.Activities = append(st.day.Activities, models.Activity{
		Kind:      models.ActivityPlace,
		TimeOfDay: slot,
		ID:        chosen.ID,
		StartTime: formatMinutes(startMin),
		EndTime:   formatMinutes(endMin),
		Tags:      activityTags(chosen),
	})

	st.slotCounts[slot]++
	st.slotNextStart[slot] = endMin + slotGapMinutes
	st.categoryCounts[chosen.Category]++
	st.placed++
	dctx.UsedIDs[chosen.ID] = struct{}{}
	if st.anchor == nil && chosen.Coordinates != nil {
		c := *chosen.Coordinates
		st.anchor = &c
	}
	st.remaining = removeByID(st.remaining, chosen.ID)
	return true
}

// slotCategory rotates the requested interests across placements, offset
// by the day index so multi-day trips do not open every day on the same
// interest. Empty interests mean no category preference.
func slotCategory(interests []string, dayIndex, placed int) string {
	if len(interests) == 0 {
		return ""
	}
	return interests[(dayIndex+placed)%len(interests)]
}

// slotsByFill orders slots by how few activities they hold, ties broken
// morning before afternoon before evening.
func slotsByFill(counts map[string]int) []string {
	slots := make([]string, len(models.Slots))
	copy(slots, models.Slots)
	sort.SliceStable(slots, func(i, j int) bool {
		if counts[slots[i]] != counts[slots[j]] {
			return counts[slots[i]] < counts[slots[j]]
		}
		return slotRank[slots[i]] < slotRank[slots[j]]
	})
	return slots
}

func visitMinutes(loc models.Location) int {
	if loc.RecommendedVisitMinutes != nil && *loc.RecommendedVisitMinutes > 0 {
		return *loc.RecommendedVisitMinutes
	}
	return defaultVisitMinutes
}

// activityTags leads with the normalized category, then the location's
// finer tags.
func activityTags(loc models.Location) []string {
	tags := make([]string, 0, len(loc.Tags)+1)
	tags = append(tags, loc.Category)
	for _, t := range loc.Tags {
		if t != loc.Category {
			tags = append(tags, t)
		}
	}
	return tags
}

func noteActivity(slot, city string) models.Activity {
	return models.Activity{
		Kind:      models.ActivityNote,
		TimeOfDay: slot,
		Text: fmt.Sprintf("Free %s in %s. The catalog has no more open spots for this window; explore at your own pace.",
			slot, geo.DisplayName(city)),
	}
}

func formatMinutes(m int) string {
	m %= 24 * 60
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func removeByID(locs []models.Location, id string) []models.Location {
	for i, loc := range locs {
		if loc.ID == id {
			return append(locs[:i], locs[i+1:]...)
		}
	}
	return locs
}
