// Package scoring turns one location and one request context into an
// additive score with human-readable reasons. Scoring is pure: equal inputs
// produce equal values and equal reason lists, which keeps generated plans
// reproducible and auditable.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

const (
	categoryMatchPoints = 3.0
	ratingCeiling       = 2.0
	reviewCeiling       = 1.0
	savedBoostPoints    = 5.0
	distancePenaltyCap  = 2.0
)

// budgetCeiling maps a requested budget level onto the highest price level
// still considered inside it.
var budgetCeiling = map[string]int{
	models.BudgetLow:    1,
	models.BudgetMedium: 2,
	models.BudgetHigh:   3,
	models.BudgetLuxury: 4,
}

// partyTagWeights nudges venues by party profile based on their tags.
// Weights of matched tags are summed and clamped to [-1, 1].
var partyTagWeights = map[string]map[string]float64{
	models.PartyFamily: {
		"nightlife": -1, "bar": -1, "izakaya": -1,
		"theme-park": 1, "aquarium": 1, "zoo": 1, "park": 1,
	},
	models.PartySolo: {
		"cafe": 1, "museum": 1, "bookstore": 1, "ramen": 1,
	},
	models.PartyCouple: {
		"onsen": 1, "garden": 1, "viewpoint": 1, "night-view": 1,
	},
	models.PartyGroup: {
		"nightlife": 1, "bar": 1, "izakaya": 1, "karaoke": 1,
	},
}

// Context is everything besides the location itself that influences a score.
// The day anchor is the first activity already placed in the day; candidates
// are distance-penalized against it so days stay geographically coherent.
type Context struct {
	Interests []string
	Pace      string
	Budget    string
	Party     string
	City      string
	SavedIDs  map[string]struct{}
	PlacedIDs map[string]struct{}
	Anchor    *models.Coordinates
}

// Result carries the summed score and one short phrase per non-zero factor.
// A disqualified result must never be placed, whatever its value says.
type Result struct {
	Value        float64
	Reasons      []string
	Disqualified bool
}

// Scored pairs a candidate with its score for ranking.
type Scored struct {
	Location models.Location
	Result   Result
}

// IDSet builds the set form the context wants for saved and placed ids.
func IDSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Score evaluates the additive factors in a fixed order. Missing location
// fields contribute zero rather than an error or a NaN.
func Score(loc models.Location, sctx Context) Result {
	res := Result{Reasons: make([]string, 0, 4)}

	// Anything already placed in the trip is out, no matter the score.
	if _, placed := sctx.PlacedIDs[loc.ID]; placed {
		res.Disqualified = true
		res.Reasons = append(res.Reasons, "already placed in this trip")
		return res
	}

	// 1. Category fit against the selected interests.
	for _, interest := range sctx.Interests {
		if interest == loc.Category {
			res.Value += categoryMatchPoints
			res.Reasons = append(res.Reasons, fmt.Sprintf("matches interest: %s", loc.Category))
			break
		}
	}

	// 2. Rating, (rating - 3) clamped to [0, 2].
	if loc.Rating != nil {
		if pts := clamp(*loc.Rating-3, 0, ratingCeiling); pts > 0 {
			res.Value += pts
			res.Reasons = append(res.Reasons, "highly rated")
		}
	}

	// 3. Review weight, log10(1 + n) / 4 clamped to [0, 1].
	if loc.ReviewCount != nil && *loc.ReviewCount > 0 {
		if pts := clamp(math.Log10(1+float64(*loc.ReviewCount))/4, 0, reviewCeiling); pts > 0 {
			res.Value += pts
			res.Reasons = append(res.Reasons, "widely reviewed")
		}
	}

	// 4. Pace fit from the recommended visit length.
	if pts, reason := paceFit(sctx.Pace, loc.RecommendedVisitMinutes); pts != 0 {
		res.Value += pts
		res.Reasons = append(res.Reasons, reason)
	}

	// 5. Budget fit from the price level.
	if pts, reason := budgetFit(sctx.Budget, loc.PriceLevel); pts != 0 {
		res.Value += pts
		res.Reasons = append(res.Reasons, reason)
	}

	// 6. Party fit from tags.
	if pts := partyFit(sctx.Party, loc.Tags); pts != 0 {
		res.Value += pts
		if pts > 0 {
			res.Reasons = append(res.Reasons, fmt.Sprintf("good pick for a %s trip", sctx.Party))
		} else {
			res.Reasons = append(res.Reasons, fmt.Sprintf("less suited to a %s trip", sctx.Party))
		}
	}

	// 7. Distance from the day anchor, -min(2, km/10). The first slot of a
	// day has no anchor and pays no penalty.
	if sctx.Anchor != nil && loc.Coordinates != nil {
		km := geo.HaversineKm(
			sctx.Anchor.Latitude, sctx.Anchor.Longitude,
			loc.Coordinates.Latitude, loc.Coordinates.Longitude,
		)
		if penalty := math.Min(distancePenaltyCap, km/10); penalty > 0 {
			res.Value -= penalty
			res.Reasons = append(res.Reasons, "far from the day's first stop")
		}
	}

	// 8. Saved-id boost pins explicit picks near the top.
	if _, saved := sctx.SavedIDs[loc.ID]; saved {
		res.Value += savedBoostPoints
		res.Reasons = append(res.Reasons, "saved by you")
	}

	return res
}

// Rank scores every candidate and orders them best first, dropping
// disqualified ones. Ties break by review count descending with missing
// counts last, then id ascending, so equal stores rank identically.
func Rank(locs []models.Location, sctx Context) []Scored {
	scored := make([]Scored, 0, len(locs))
	for _, loc := range locs {
		res := Score(loc, sctx)
		if res.Disqualified {
			continue
		}
		scored = append(scored, Scored{Location: loc, Result: res})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Result.Value != b.Result.Value {
			return a.Result.Value > b.Result.Value
		}

		ar, br := a.Location.ReviewCount, b.Location.ReviewCount
		switch {
		case ar != nil && br == nil:
			return true
		case ar == nil && br != nil:
			return false
		case ar != nil && br != nil && *ar != *br:
			return *ar > *br
		}

		return a.Location.ID < b.Location.ID
	})
	return scored
}

func paceFit(pace string, visitMinutes *int) (float64, string) {
	if visitMinutes == nil {
		return 0, ""
	}
	switch pace {
	case models.PaceFast:
		if *visitMinutes <= 60 {
			return 1, "quick stop suits a fast pace"
		}
		if *visitMinutes > 120 {
			return -1, "long visit slows a fast pace"
		}
	case models.PaceRelaxed:
		if *visitMinutes >= 120 {
			return 1, "unhurried visit suits a relaxed pace"
		}
		if *visitMinutes <= 60 {
			return -1, "too brief for a relaxed pace"
		}
	}
	return 0, ""
}

func budgetFit(budget string, priceLevel *int) (float64, string) {
	ceiling, ok := budgetCeiling[budget]
	if !ok || priceLevel == nil {
		return 0, ""
	}
	switch over := *priceLevel - ceiling; {
	case over <= 0:
		return 1, "within budget"
	case over == 1:
		return -1, "a step above budget"
	default:
		return -2, "well above budget"
	}
}

func partyFit(party string, tags []string) float64 {
	weights, ok := partyTagWeights[party]
	if !ok {
		return 0
	}
	var sum float64
	for _, tag := range tags {
		sum += weights[tag]
	}
	return clamp(sum, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
