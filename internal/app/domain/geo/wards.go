package geo

import (
	"sync"

	a "github.com/petar-dambovaliev/aho-corasick"
)

// wardToCity maps ward names that occur in exactly one of the covered cities
// to their parent city. Names that repeat across cities, or that collide with
// a city or prefecture name, live in ambiguousWards instead.
var wardToCity = map[string]string{
	// Tokyo special wards
	"chiyoda":    "tokyo",
	"shinjuku":   "tokyo",
	"bunkyo":     "tokyo",
	"taito":      "tokyo",
	"sumida":     "tokyo",
	"koto":       "tokyo",
	"shinagawa":  "tokyo",
	"meguro":     "tokyo",
	"ota":        "tokyo",
	"setagaya":   "tokyo",
	"shibuya":    "tokyo",
	"nakano":     "tokyo",
	"suginami":   "tokyo",
	"toshima":    "tokyo",
	"arakawa":    "tokyo",
	"itabashi":   "tokyo",
	"nerima":     "tokyo",
	"adachi":     "tokyo",
	"katsushika": "tokyo",
	"edogawa":    "tokyo",

	// Osaka
	"miyakojima":       "osaka",
	"konohana":         "osaka",
	"taisho":           "osaka",
	"tennoji":          "osaka",
	"naniwa":           "osaka",
	"nishiyodogawa":    "osaka",
	"yodogawa":         "osaka",
	"higashiyodogawa":  "osaka",
	"higashinari":      "osaka",
	"ikuno":            "osaka",
	"joto":             "osaka",
	"abeno":            "osaka",
	"suminoe":          "osaka",
	"sumiyoshi":        "osaka",
	"higashisumiyoshi": "osaka",
	"hirano":           "osaka",
	"nishinari":        "osaka",

	// Kyoto
	"kamigyo":     "kyoto",
	"sakyo":       "kyoto",
	"nakagyo":     "kyoto",
	"higashiyama": "kyoto",
	"shimogyo":    "kyoto",
	"ukyo":        "kyoto",
	"fushimi":     "kyoto",
	"yamashina":   "kyoto",
	"nishikyo":    "kyoto",

	// Yokohama
	"hodogaya": "yokohama",
	"isogo":    "yokohama",
	"kohoku":   "yokohama",
	"totsuka":  "yokohama",
	"seya":     "yokohama",
	"sakae":    "yokohama",
	"tsuzuki":  "yokohama",
	"konan":    "yokohama",

	// Sapporo
	"atsubetsu": "sapporo",
	"toyohira":  "sapporo",
	"kiyota":    "sapporo",
	"teine":     "sapporo",

	// Nagoya
	"chikusa":  "nagoya",
	"nakamura": "nagoya",
	"showa":    "nagoya",
	"mizuho":   "nagoya",
	"atsuta":   "nagoya",
	"nakagawa": "nagoya",
	"meito":    "nagoya",
	"tenpaku":  "nagoya",

	// Kobe
	"higashinada": "kobe",
	"nada":        "kobe",
	"nagata":      "kobe",
	"suma":        "kobe",
	"tarumi":      "kobe",

	// Fukuoka
	"hakata": "fukuoka",
	"jonan":  "fukuoka",
	"sawara": "fukuoka",

	// Sendai
	"miyagino":    "sendai",
	"wakabayashi": "sendai",
	"taihaku":     "sendai",
}

// ambiguousWards maps ward names that cannot be resolved without a
// prefecture. The inner map keys by prefecture and yields the parent city.
// Identity entries (the name maps to itself) mark standalone cities that
// merely share a name with a ward elsewhere, such as Sakai in Osaka.
var ambiguousWards = map[string]map[string]string{
	"chuo": {
		"tokyo":    "tokyo",
		"osaka":    "osaka",
		"hokkaido": "sapporo",
		"fukuoka":  "fukuoka",
		"hyogo":    "kobe",
	},
	"kita": {
		"tokyo":    "tokyo",
		"osaka":    "osaka",
		"kyoto":    "kyoto",
		"hokkaido": "sapporo",
		"aichi":    "nagoya",
		"hyogo":    "kobe",
	},
	"minato": {
		"tokyo": "tokyo",
		"osaka": "osaka",
		"aichi": "nagoya",
	},
	"nishi": {
		"osaka":    "osaka",
		"kanagawa": "yokohama",
		"hokkaido": "sapporo",
		"aichi":    "nagoya",
		"hyogo":    "kobe",
		"fukuoka":  "fukuoka",
	},
	"naka": {
		"kanagawa":  "yokohama",
		"aichi":     "nagoya",
		"hiroshima": "hiroshima",
	},
	"minami": {
		"kyoto":    "kyoto",
		"kanagawa": "yokohama",
		"hokkaido": "sapporo",
		"aichi":    "nagoya",
		"fukuoka":  "fukuoka",
	},
	"higashi": {
		"hokkaido":  "sapporo",
		"aichi":     "nagoya",
		"fukuoka":   "fukuoka",
		"hiroshima": "hiroshima",
	},
	"asahi": {
		"osaka":    "osaka",
		"kanagawa": "yokohama",
		"chiba":    "asahi",
	},
	"midori": {
		"kanagawa": "yokohama",
		"aichi":    "nagoya",
		"chiba":    "chiba",
		"gunma":    "midori",
	},
	"izumi": {
		"kanagawa": "yokohama",
		"miyagi":   "sendai",
		"osaka":    "izumi",
	},
	"fukushima": {
		"osaka":     "osaka",
		"fukushima": "fukushima",
	},
	"kanagawa": {
		"kanagawa": "yokohama",
	},
	"kanazawa": {
		"kanagawa": "yokohama",
		"ishikawa": "kanazawa",
	},
	"hyogo": {
		"hyogo": "kobe",
	},
	"tsurumi": {
		"kanagawa": "yokohama",
		"osaka":    "osaka",
	},
	"aoba": {
		"kanagawa": "yokohama",
		"miyagi":   "sendai",
	},
	"shiroishi": {
		"hokkaido": "sapporo",
		"miyagi":   "shiroishi",
	},
	"moriyama": {
		"aichi": "nagoya",
		"shiga": "moriyama",
	},
	"sakai": {
		"osaka": "sakai",
		"fukui": "sakai",
	},
	"fuchu": {
		"tokyo":     "fuchu",
		"hiroshima": "fuchu",
	},
}

var (
	wardMatcherOnce sync.Once
	wardMatcher     a.AhoCorasick
	wardNames       []string
)

func buildWardMatcher() {
	seen := make(map[string]struct{}, len(wardToCity)+len(ambiguousWards))
	for w := range wardToCity {
		seen[w] = struct{}{}
	}
	for w := range ambiguousWards {
		seen[w] = struct{}{}
	}
	wardNames = make([]string, 0, len(seen))
	for w := range seen {
		wardNames = append(wardNames, w)
	}

	builder := a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            a.LeftMostLongestMatch,
	})
	wardMatcher = builder.Build(wardNames)
}

// MatchWard scans free text, typically a location name or address fragment,
// for a known ward name and returns the matched ward. Matching is case
// insensitive and whole-word, leftmost-longest wins.
func MatchWard(text string) (string, bool) {
	wardMatcherOnce.Do(buildWardMatcher)

	matches := wardMatcher.FindAll(text)
	if len(matches) == 0 {
		return "", false
	}
	m := matches[0]
	return normalizeASCII(text[m.Start():m.End()]), true
}

// WardParent resolves a ward name to its parent city. The prefecture is
// consulted for names in the ambiguous set and ignored otherwise. The second
// return is false when the name is not a known ward or the ambiguity cannot
// be resolved.
func WardParent(ward, prefecture string) (string, bool) {
	if byPref, ok := ambiguousWards[ward]; ok {
		if prefecture == "" {
			return "", false
		}
		city, ok := byPref[prefecture]
		return city, ok
	}
	city, ok := wardToCity[ward]
	return city, ok
}
