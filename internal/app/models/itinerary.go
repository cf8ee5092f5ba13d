package models

// Time-of-day slots. Every day carries at least one activity per slot.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
)

// Slots lists the three slots in packing order.
var Slots = []string{SlotMorning, SlotAfternoon, SlotEvening}

// Activity kinds. An activity is a tagged variant: a concrete place visit or
// a free-text note. Consumers switch on Kind; no other kinds exist.
const (
	ActivityPlace = "place"
	ActivityNote  = "note"
)

// TravelLeg describes how to reach an activity from the previous stop.
type TravelLeg struct {
	Mode            string `json:"mode"`
	DurationMinutes int    `json:"durationMinutes"`
	DistanceMeters  int    `json:"distanceMeters"`
	DepartureTime   string `json:"departureTime,omitempty"`
}

// Activity is one itinerary entry. Kind selects the variant: "place" fills
// ID/StartTime/EndTime/Tags/TravelFromPrevious, "note" fills Text. TimeOfDay
// is set on both.
type Activity struct {
	Kind               string     `json:"kind"`
	TimeOfDay          string     `json:"timeOfDay"`
	ID                 string     `json:"id,omitempty"`
	StartTime          string     `json:"startTime,omitempty"`
	EndTime            string     `json:"endTime,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	TravelFromPrevious *TravelLeg `json:"travelFromPrevious,omitempty"`
	Text               string     `json:"text,omitempty"`
}

// IsPlace reports whether the activity is a concrete place visit.
func (a Activity) IsPlace() bool { return a.Kind == ActivityPlace }

// IsNote reports whether the activity is a free-text placeholder.
func (a Activity) IsNote() bool { return a.Kind == ActivityNote }

// Day is one itinerary day in one city. CityTransition marks the later day
// of a consecutive pair spent in different cities.
type Day struct {
	CityID         string     `json:"cityId"`
	Date           string     `json:"date,omitempty"` // YYYY-MM-DD
	Activities     []Activity `json:"activities"`
	CityTransition bool       `json:"cityTransition,omitempty"`
}

// Itinerary is the ordered day-by-day plan.
type Itinerary struct {
	Days []Day `json:"days"`
}

// PlaceIDs returns the ids of all place activities in itinerary order.
func (i Itinerary) PlaceIDs() []string {
	var ids []string
	for _, day := range i.Days {
		for _, act := range day.Activities {
			if act.IsPlace() {
				ids = append(ids, act.ID)
			}
		}
	}
	return ids
}
