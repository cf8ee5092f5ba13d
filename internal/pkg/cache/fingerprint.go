// Package cache holds the plan fingerprint builder and the bounded response
// cache the planner serves repeat requests from.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

// TripKeyBuilder assembles the fingerprint of a normalized trip request.
// Components are hashed in insertion order, so two processes that feed the
// same fields in the same order always agree on the key.
type TripKeyBuilder struct {
	components []any
}

func NewTripKeyBuilder() *TripKeyBuilder {
	return &TripKeyBuilder{components: make([]any, 0, 10)}
}

// Add appends one named component to the key.
func (b *TripKeyBuilder) Add(key string, value any) *TripKeyBuilder {
	b.components = append(b.components, map[string]any{key: value})
	return b
}

// Build hashes the components into an MD5 hex key. MD5 is a bucket key
// here, not a security boundary.
func (b *TripKeyBuilder) Build() string {
	jsonBytes, err := json.Marshal(b.components)
	if err != nil {
		// The builder is only ever fed strings, ints and string slices.
		return ""
	}
	hash := md5.Sum(jsonBytes)
	return hex.EncodeToString(hash[:])
}

// Fingerprint hashes every request field that influences the generated plan.
// Saved ids are order-insensitive and get sorted first. Cities and interests
// are hashed in request order: city order steers the day sequence and
// interest order steers the slot rotation, so reordering them is a
// different trip.
func Fingerprint(req models.TripRequest) string {
	saved := append([]string(nil), req.SavedIDs...)
	sort.Strings(saved)

	return NewTripKeyBuilder().
		Add("domain", "itinerary").
		Add("duration", req.Duration).
		Add("start_date", req.StartDate).
		Add("cities", req.Cities).
		Add("regions", req.Regions).
		Add("interests", req.Interests).
		Add("pace", req.Pace).
		Add("budget", req.Budget).
		Add("party", req.Party).
		Add("saved_ids", saved).
		Build()
}
