package models

// Trip pacing. Pace drives the per-day activity targets in the day packer.
const (
	PaceRelaxed  = "relaxed"
	PaceBalanced = "balanced"
	PaceFast     = "fast"
)

// Budget levels, loosest to strictest mapping onto price levels 0-4.
const (
	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"
	BudgetLuxury = "luxury"
)

// Party profiles.
const (
	PartySolo   = "solo"
	PartyCouple = "couple"
	PartyFamily = "family"
	PartyGroup  = "group"
)

// TripRequest is the traveler's input to the generator.
type TripRequest struct {
	Duration       int      `json:"duration"`
	StartDate      string   `json:"startDate,omitempty"` // YYYY-MM-DD
	Cities         []string `json:"cities,omitempty"`
	Regions        []string `json:"regions,omitempty"`
	Interests      []string `json:"interests,omitempty"`
	Pace           string   `json:"pace,omitempty"`
	Budget         string   `json:"budget,omitempty"`
	Party          string   `json:"party,omitempty"`
	SavedIDs       []string `json:"savedIds,omitempty"`
	TripID         string   `json:"tripId,omitempty"`
	ContentContext string   `json:"contentContext,omitempty"`
}

// PlanRequest is the wire envelope of POST /itinerary/plan. SavedIDs and
// TripID may arrive at either level; top-level values win.
type PlanRequest struct {
	BuilderData TripRequest `json:"builderData"`
	TripID      string      `json:"tripId,omitempty"`
	SavedIDs    []string    `json:"savedIds,omitempty"`
}

// Trip wraps a generated itinerary with its identity and ingest-level checks.
type Trip struct {
	ID         string     `json:"id"`
	Itinerary  Itinerary  `json:"itinerary"`
	Validation Validation `json:"validation"`
}

// PlanResponse is the full body of a successful plan generation.
type PlanResponse struct {
	Trip                Trip       `json:"trip"`
	Itinerary           Itinerary  `json:"itinerary"`
	DayIntros           []string   `json:"dayIntros"`
	Validation          Validation `json:"validation"`
	ItineraryValidation Validation `json:"itineraryValidation"`
}

// AvailabilityRequest asks for a best-effort open-now check on a batch of
// location ids, optionally at a specific instant.
type AvailabilityRequest struct {
	ActivityIDs []string `json:"activityIds"`
	At          string   `json:"at,omitempty"` // RFC3339; defaults to now
}

// AvailabilityResult is the per-id answer.
type AvailabilityResult struct {
	ID     string `json:"id"`
	Open   bool   `json:"open"`
	Reason string `json:"reason,omitempty"`
}

// ReplacementRequest asks for scored substitutes for one slot of one day.
type ReplacementRequest struct {
	BuilderData TripRequest `json:"builderData"`
	City        string      `json:"city"`
	DayIndex    int         `json:"dayIndex"`
	TimeOfDay   string      `json:"timeOfDay"`
	ExcludeIDs  []string    `json:"excludeIds,omitempty"`
}

// ReplacementCandidate is one substitute with its score breakdown.
type ReplacementCandidate struct {
	Location Location `json:"location"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons"`
}
