package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var titleCaser = cases.Title(language.English)

// citySuffixes are administrative suffixes stripped during normalization,
// longest first so " city" is removed before a bare trailing "shi" would be
// considered.
var citySuffixes = []string{
	"-shi",
	"-ku",
	"-cho",
	"-machi",
	" city",
	" ward",
	" shi",
	" ku",
}

func normalizeASCII(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

func stripSuffix(s string) string {
	for _, suf := range citySuffixes {
		if strings.HasSuffix(s, suf) {
			return strings.TrimSpace(strings.TrimSuffix(s, suf))
		}
	}
	return s
}

// NormalizeCity canonicalizes a user-supplied city name: full-width
// characters are folded, case and surrounding space dropped, administrative
// suffixes (-shi, -ku, City, Ward) stripped, and ward names are resolved to
// their parent city. Ward names in the ambiguous set resolve only when the
// prefecture pins them down; otherwise the cleaned residue is returned
// unchanged. The function is idempotent: feeding its output back in returns
// the same value.
func NormalizeCity(raw, prefecture string) string {
	name := stripSuffix(normalizeASCII(raw))
	if name == "" {
		return ""
	}
	pref := normalizeASCII(prefecture)

	if city, ok := WardParent(name, pref); ok {
		return city
	}
	return name
}

// DisplayName renders a normalized city or region identifier for humans,
// e.g. "tokyo" becomes "Tokyo".
func DisplayName(id string) string {
	return titleCaser.String(id)
}

// CityRegionConflict describes a city that resolves to a different region
// than the one requested.
type CityRegionConflict struct {
	City            string
	RequestedRegion string
	ActualRegion    string
}

// ValidateCityAgainstRegion checks a normalized city against a region id.
// It reports a conflict when the city's known center, or the optional
// explicit coordinates, fall inside a different region's bounding box. An
// unknown city with no coordinates is not a conflict, the tables are
// advisory.
func ValidateCityAgainstRegion(city, region string, coord *Point) *CityRegionConflict {
	actual, known := RegionOfCity(city)
	if !known && coord != nil {
		actual, known = RegionContaining(coord.Lat, coord.Lng)
	}
	if !known || actual == region {
		return nil
	}
	return &CityRegionConflict{
		City:            city,
		RequestedRegion: region,
		ActualRegion:    actual,
	}
}
