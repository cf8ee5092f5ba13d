package models

import (
	"encoding/json"
	"fmt"
)

// Normalized location categories. Finer-grained labels live in Tags.
const (
	CategoryCulture    = "culture"
	CategoryNature     = "nature"
	CategoryFood       = "food"
	CategoryShopping   = "shopping"
	CategoryAttraction = "attraction"
	CategoryHotel      = "hotel"
)

// ValidCategories is the closed set of normalized categories accepted as
// interests in a trip request.
var ValidCategories = []string{
	CategoryCulture,
	CategoryNature,
	CategoryFood,
	CategoryShopping,
	CategoryAttraction,
	CategoryHotel,
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OperatingPeriod is one open window within a week. Weekday follows
// time.Weekday numbering (Sunday = 0). Overnight marks windows that close
// past midnight, e.g. 18:00-02:00.
type OperatingPeriod struct {
	Weekday   int    `json:"weekday"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	Overnight bool   `json:"overnight,omitempty"`
}

// OperatingHours carries a location's weekly schedule with its timezone.
type OperatingHours struct {
	Timezone string            `json:"timezone"`
	Periods  []OperatingPeriod `json:"periods"`
}

// Location is the immutable catalog snapshot the planner consumes. Optional
// numeric fields are pointers so absence survives round-trips unchanged.
type Location struct {
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Category                string          `json:"category"`
	City                    string          `json:"city"`
	Prefecture              string          `json:"prefecture,omitempty"`
	Region                  string          `json:"region"`
	Coordinates             *Coordinates    `json:"coordinates,omitempty"`
	Rating                  *float64        `json:"rating,omitempty"`
	ReviewCount             *int            `json:"reviewCount,omitempty"`
	OperatingHours          *OperatingHours `json:"operatingHours,omitempty"`
	PriceLevel              *int            `json:"priceLevel,omitempty"`
	Tags                    []string        `json:"tags,omitempty"`
	RecommendedVisitMinutes *int            `json:"recommendedVisitMinutes,omitempty"`
	PlaceID                 string          `json:"placeId,omitempty"`
}

// UnmarshalJSON tolerates operating hours arriving either as the structured
// object or as a raw JSON string column from older exports.
func (o *OperatingHours) UnmarshalJSON(data []byte) error {
	type alias OperatingHours
	var direct alias
	if err := json.Unmarshal(data, &direct); err == nil {
		*o = OperatingHours(direct)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("operating hours: unsupported encoding: %w", err)
	}
	var nested alias
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		return fmt.Errorf("operating hours: invalid nested payload: %w", err)
	}
	*o = OperatingHours(nested)
	return nil
}

// RadiusFilter restricts listings to a great-circle radius around a point.
// Locations without coordinates are dropped when a radius is applied.
type RadiusFilter struct {
	Center Coordinates
	Km     float64
}

// LocationFilter narrows catalog listings. Zero values mean "no constraint".
type LocationFilter struct {
	Region   string
	City     string
	Category string
	OpenNow  bool
	Radius   *RadiusFilter
	Limit    int
	Offset   int
}
