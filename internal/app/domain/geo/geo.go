// Package geo carries the fixed geographic model of Japan the planner relies
// on: prefecture to region mapping, region bounding boxes, city centers, ward
// normalization, and great-circle distance.
//
// Every function is total. Unknown inputs yield a no-result return, never an
// error, so callers can treat the tables as advisory.
package geo

import "math"

const (
	// EarthRadiusM is the mean radius of Earth in meters.
	EarthRadiusM = 6_371_000.0

	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0
)

// HaversineMeters returns the great-circle distance in meters between two
// WGS84 points.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLng := degToRad(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*sinLng*sinLng

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineMeters(lat1, lng1, lat2, lng2) / 1000.0
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
