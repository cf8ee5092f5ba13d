package planner

import (
	"fmt"
	"sort"

	"github.com/tabiji-app/tabiji/internal/app/domain/geo"
	"github.com/tabiji-app/tabiji/internal/app/models"
)

// clusterRunLength is how many consecutive stops in one neighborhood
// trigger the clustering warning.
const clusterRunLength = 4

// checkFunc inspects a finished itinerary and reports findings. byID
// resolves place activities to their catalog records; ids missing from
// the map are skipped, not flagged.
type checkFunc func(it *models.Itinerary, byID map[string]models.Location) []models.Issue

type rule struct {
	code     string
	name     string
	severity string
	check    checkFunc
}

// itineraryRules is the post-generation rule registry, evaluated in
// order. Severity error marks a broken invariant, warning a quality
// concern; neither fails the request.
var itineraryRules = []rule{
	{"duplicate-ids", "No repeated stops", models.SeverityError, checkDuplicateIDs},
	{"day-density", "Enough places per day", models.SeverityWarning, checkDayDensity},
	{"category-diversity", "Mixed categories per day", models.SeverityWarning, checkCategoryDiversity},
	{"neighborhood-clustering", "Stops spread across neighborhoods", models.SeverityWarning, checkNeighborhoodClustering},
	{"region-consistency", "Region matches prefecture", models.SeverityError, checkRegionConsistency},
}

// Validate runs every registered rule and aggregates the findings.
func Validate(it *models.Itinerary, byID map[string]models.Location) models.Validation {
	var issues []models.Issue
	for _, r := range itineraryRules {
		for _, issue := range r.check(it, byID) {
			issue.Severity = r.severity
			issue.Category = r.code
			issues = append(issues, issue)
		}
	}
	return models.NewValidation(issues)
}

func checkDuplicateIDs(it *models.Itinerary, _ map[string]models.Location) []models.Issue {
	counts := make(map[string]int)
	for _, id := range it.PlaceIDs() {
		counts[id]++
	}

	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)

	issues := make([]models.Issue, 0, len(dups))
	for _, id := range dups {
		issues = append(issues, models.Issue{
			Message: fmt.Sprintf("location %q appears %d times across the itinerary", id, counts[id]),
		})
	}
	return issues
}

func checkDayDensity(it *models.Itinerary, _ map[string]models.Location) []models.Issue {
	var issues []models.Issue
	for i, day := range it.Days {
		places := 0
		for _, act := range day.Activities {
			if act.IsPlace() {
				places++
			}
		}
		if places < 2 {
			issues = append(issues, models.Issue{
				Message: fmt.Sprintf("day %d has only %d place visit(s); the catalog pool may be too thin", i+1, places),
			})
		}
	}
	return issues
}

func checkCategoryDiversity(it *models.Itinerary, byID map[string]models.Location) []models.Issue {
	var issues []models.Issue
	for i, day := range it.Days {
		counts := make(map[string]int)
		total := 0
		for _, act := range day.Activities {
			if !act.IsPlace() {
				continue
			}
			loc, ok := byID[act.ID]
			if !ok {
				continue
			}
			counts[loc.Category]++
			total++
		}
		if total < 2 {
			continue
		}
		for category, n := range counts {
			if n*2 > total {
				issues = append(issues, models.Issue{
					Message: fmt.Sprintf("day %d: %d of %d places are %s", i+1, n, total, category),
				})
				break
			}
		}
	}
	return issues
}

func checkNeighborhoodClustering(it *models.Itinerary, byID map[string]models.Location) []models.Issue {
	var issues []models.Issue
	for i, day := range it.Days {
		run := 0
		prevWard := ""
		for _, act := range day.Activities {
			if !act.IsPlace() {
				continue
			}
			loc, ok := byID[act.ID]
			if !ok {
				continue
			}
			ward, matched := geo.MatchWard(loc.Name)
			if !matched || ward != prevWard {
				run = 0
				prevWard = ""
			}
			if matched {
				prevWard = ward
				run++
				if run == clusterRunLength {
					issues = append(issues, models.Issue{
						Message: fmt.Sprintf("day %d: %d consecutive stops cluster in %s", i+1, clusterRunLength, geo.DisplayName(ward)),
					})
				}
			}
		}
	}
	return issues
}

func checkRegionConsistency(it *models.Itinerary, byID map[string]models.Location) []models.Issue {
	var issues []models.Issue
	flagged := make(map[string]struct{})
	for _, id := range it.PlaceIDs() {
		if _, done := flagged[id]; done {
			continue
		}
		loc, ok := byID[id]
		if !ok || loc.Prefecture == "" {
			continue
		}
		want, known := geo.RegionOf(loc.Prefecture)
		if !known || want == loc.Region {
			continue
		}
		flagged[id] = struct{}{}
		issues = append(issues, models.Issue{
			Message: fmt.Sprintf("location %q is filed under %s but prefecture %s belongs to %s",
				id, loc.Region, loc.Prefecture, want),
		})
	}
	return issues
}
