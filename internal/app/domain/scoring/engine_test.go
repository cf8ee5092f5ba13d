package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestScoreIsPure(t *testing.T) {
	loc := models.Location{
		ID: "kyoto-fushimi-inari", Category: models.CategoryCulture,
		Coordinates: &models.Coordinates{Latitude: 34.9671, Longitude: 135.7727},
		Rating:      fptr(4.7), ReviewCount: iptr(52000),
		Tags: []string{"shrine", "hiking"}, RecommendedVisitMinutes: iptr(120),
		PriceLevel: iptr(0),
	}
	sctx := Context{
		Interests: []string{models.CategoryCulture, models.CategoryFood},
		Pace:      models.PaceRelaxed,
		Budget:    models.BudgetMedium,
		Party:     models.PartyCouple,
		SavedIDs:  IDSet([]string{"kyoto-fushimi-inari"}),
		Anchor:    &models.Coordinates{Latitude: 35.0116, Longitude: 135.7681},
	}

	first := Score(loc, sctx)
	second := Score(loc, sctx)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.False(t, first.Disqualified)
}

func TestScoreCategoryFit(t *testing.T) {
	loc := models.Location{ID: "x", Category: models.CategoryFood}

	hit := Score(loc, Context{Interests: []string{models.CategoryCulture, models.CategoryFood}})
	assert.InDelta(t, 3.0, hit.Value, 1e-9)
	assert.Contains(t, hit.Reasons, "matches interest: food")

	miss := Score(loc, Context{Interests: []string{models.CategoryNature}})
	assert.Zero(t, miss.Value)
	assert.Empty(t, miss.Reasons)

	none := Score(loc, Context{})
	assert.Zero(t, none.Value)
}

func TestScoreRating(t *testing.T) {
	assert.InDelta(t, 1.5, Score(models.Location{ID: "a", Rating: fptr(4.5)}, Context{}).Value, 1e-9)
	assert.InDelta(t, 2.0, Score(models.Location{ID: "b", Rating: fptr(5.0)}, Context{}).Value, 1e-9)

	low := Score(models.Location{ID: "c", Rating: fptr(2.0)}, Context{})
	assert.Zero(t, low.Value, "ratings under 3 clamp to zero, not a penalty")
	assert.Empty(t, low.Reasons)

	assert.Zero(t, Score(models.Location{ID: "d"}, Context{}).Value)
}

func TestScoreReviewWeight(t *testing.T) {
	assert.InDelta(t, 1.0, Score(models.Location{ID: "a", ReviewCount: iptr(9999)}, Context{}).Value, 1e-9)
	assert.InDelta(t, 0.5, Score(models.Location{ID: "b", ReviewCount: iptr(99)}, Context{}).Value, 1e-9)
	assert.InDelta(t, 1.0, Score(models.Location{ID: "c", ReviewCount: iptr(5_000_000)}, Context{}).Value, 1e-9,
		"weight is capped at one")
	assert.Zero(t, Score(models.Location{ID: "d", ReviewCount: iptr(0)}, Context{}).Value)
}

func TestScorePaceFit(t *testing.T) {
	tests := []struct {
		name    string
		pace    string
		minutes *int
		want    float64
	}{
		{"fast likes quick stops", models.PaceFast, iptr(45), 1},
		{"fast tolerates mid visits", models.PaceFast, iptr(90), 0},
		{"fast penalizes long visits", models.PaceFast, iptr(180), -1},
		{"relaxed likes long visits", models.PaceRelaxed, iptr(150), 1},
		{"relaxed penalizes quick stops", models.PaceRelaxed, iptr(30), -1},
		{"relaxed tolerates mid visits", models.PaceRelaxed, iptr(90), 0},
		{"balanced is neutral", models.PaceBalanced, iptr(30), 0},
		{"missing minutes contribute nothing", models.PaceFast, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := models.Location{ID: "x", RecommendedVisitMinutes: tt.minutes}
			got := Score(loc, Context{Pace: tt.pace})
			assert.InDelta(t, tt.want, got.Value, 1e-9)
		})
	}
}

func TestScoreBudgetFit(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		price  *int
		want   float64
	}{
		{"inside low budget", models.BudgetLow, iptr(1), 1},
		{"free is inside every budget", models.BudgetLuxury, iptr(0), 1},
		{"one step over", models.BudgetLow, iptr(2), -1},
		{"two steps over", models.BudgetLow, iptr(3), -2},
		{"three steps over still minus two", models.BudgetLow, iptr(4), -2},
		{"no budget selected", "", iptr(4), 0},
		{"no price level", models.BudgetLow, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := models.Location{ID: "x", PriceLevel: tt.price}
			got := Score(loc, Context{Budget: tt.budget})
			assert.InDelta(t, tt.want, got.Value, 1e-9)
		})
	}
}

func TestScorePartyFit(t *testing.T) {
	bar := models.Location{ID: "x", Tags: []string{"bar", "nightlife"}}

	family := Score(bar, Context{Party: models.PartyFamily})
	assert.InDelta(t, -1.0, family.Value, 1e-9, "stacked penalties clamp to minus one")
	assert.Contains(t, family.Reasons, "less suited to a family trip")

	group := Score(bar, Context{Party: models.PartyGroup})
	assert.InDelta(t, 1.0, group.Value, 1e-9)
	assert.Contains(t, group.Reasons, "good pick for a group trip")

	solo := Score(models.Location{ID: "y", Tags: []string{"cafe"}}, Context{Party: models.PartySolo})
	assert.InDelta(t, 1.0, solo.Value, 1e-9)

	noParty := Score(bar, Context{})
	assert.Zero(t, noParty.Value)
}

func TestScoreDistancePenalty(t *testing.T) {
	anchor := &models.Coordinates{Latitude: 35.0, Longitude: 135.0}

	near := models.Location{ID: "near", Coordinates: &models.Coordinates{Latitude: 35.04497, Longitude: 135.0}}
	got := Score(near, Context{Anchor: anchor})
	assert.InDelta(t, -0.5, got.Value, 0.01, "five km costs half a point")
	assert.Contains(t, got.Reasons, "far from the day's first stop")

	far := models.Location{ID: "far", Coordinates: &models.Coordinates{Latitude: 40.0, Longitude: 135.0}}
	assert.InDelta(t, -2.0, Score(far, Context{Anchor: anchor}).Value, 1e-9, "penalty caps at two")

	atAnchor := models.Location{ID: "same", Coordinates: anchor}
	sameSpot := Score(atAnchor, Context{Anchor: anchor})
	assert.Zero(t, sameSpot.Value)
	assert.Empty(t, sameSpot.Reasons, "zero distance is not a reason")

	noAnchor := Score(near, Context{})
	assert.Zero(t, noAnchor.Value, "first slot of the day pays no distance penalty")

	noCoords := Score(models.Location{ID: "blind"}, Context{Anchor: anchor})
	assert.Zero(t, noCoords.Value)
}

func TestScoreSavedBoost(t *testing.T) {
	loc := models.Location{ID: "osaka-dotonbori"}

	got := Score(loc, Context{SavedIDs: IDSet([]string{"osaka-dotonbori"})})
	assert.InDelta(t, 5.0, got.Value, 1e-9)
	assert.Equal(t, []string{"saved by you"}, got.Reasons)

	assert.Zero(t, Score(loc, Context{SavedIDs: IDSet([]string{"other"})}).Value)
}

func TestScoreDuplicateDisqualifies(t *testing.T) {
	loc := models.Location{ID: "osaka-dotonbori", Rating: fptr(5.0), ReviewCount: iptr(64000)}

	got := Score(loc, Context{PlacedIDs: IDSet([]string{"osaka-dotonbori"})})
	assert.True(t, got.Disqualified)
	assert.Zero(t, got.Value, "a disqualified location earns nothing")
}

func TestScoreNeverNaN(t *testing.T) {
	got := Score(models.Location{ID: "bare"}, Context{})
	assert.False(t, math.IsNaN(got.Value))
	assert.Zero(t, got.Value)
	assert.Empty(t, got.Reasons)
}

func TestScoreReasonsFollowFactorOrder(t *testing.T) {
	loc := models.Location{
		ID: "tokyo-teamlab", Category: models.CategoryAttraction,
		Rating: fptr(4.6), ReviewCount: iptr(80000),
		RecommendedVisitMinutes: iptr(45),
		PriceLevel:              iptr(2),
	}
	sctx := Context{
		Interests: []string{models.CategoryAttraction},
		Pace:      models.PaceFast,
		Budget:    models.BudgetMedium,
		SavedIDs:  IDSet([]string{"tokyo-teamlab"}),
	}

	got := Score(loc, sctx)
	require.False(t, got.Disqualified)
	assert.Equal(t, []string{
		"matches interest: attraction",
		"highly rated",
		"widely reviewed",
		"quick stop suits a fast pace",
		"within budget",
		"saved by you",
	}, got.Reasons)
	// 3 + 1.6 + 1 + 1 + 1 + 5
	assert.InDelta(t, 12.6, got.Value, 1e-9)
}

func TestRankOrdersBestFirst(t *testing.T) {
	locs := []models.Location{
		{ID: "c-mid", Rating: fptr(4.0), ReviewCount: iptr(100)},
		{ID: "a-top", Rating: fptr(4.8), ReviewCount: iptr(100)},
		{ID: "b-dupe", Rating: fptr(5.0), ReviewCount: iptr(100)},
	}
	sctx := Context{PlacedIDs: IDSet([]string{"b-dupe"})}

	ranked := Rank(locs, sctx)
	require.Len(t, ranked, 2, "disqualified candidates are dropped")
	assert.Equal(t, "a-top", ranked[0].Location.ID)
	assert.Equal(t, "c-mid", ranked[1].Location.ID)
}

func TestRankTieBreaks(t *testing.T) {
	// Identical scores: review count descending, missing counts last, then id.
	locs := []models.Location{
		{ID: "delta"},
		{ID: "bravo", ReviewCount: iptr(0)},
		{ID: "alpha", ReviewCount: iptr(0)},
		{ID: "charlie"},
	}

	ranked := Rank(locs, Context{})
	require.Len(t, ranked, 4)

	ids := make([]string, 0, 4)
	for _, s := range ranked {
		ids = append(ids, s.Location.ID)
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, ids)
}
