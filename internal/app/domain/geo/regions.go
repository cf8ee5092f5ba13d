package geo

// Canonical region identifiers. These are the nine traditional regions of
// Japan and the only region values the API accepts or emits.
const (
	RegionHokkaido = "hokkaido"
	RegionTohoku   = "tohoku"
	RegionKanto    = "kanto"
	RegionChubu    = "chubu"
	RegionKansai   = "kansai"
	RegionChugoku  = "chugoku"
	RegionShikoku  = "shikoku"
	RegionKyushu   = "kyushu"
	RegionOkinawa  = "okinawa"
)

// Regions lists all region identifiers in north-to-south order.
var Regions = []string{
	RegionHokkaido,
	RegionTohoku,
	RegionKanto,
	RegionChubu,
	RegionKansai,
	RegionChugoku,
	RegionShikoku,
	RegionKyushu,
	RegionOkinawa,
}

// prefectureToRegion maps each of the 47 prefectures to its region.
var prefectureToRegion = map[string]string{
	// Hokkaido
	"hokkaido": RegionHokkaido,

	// Tohoku
	"aomori":    RegionTohoku,
	"iwate":     RegionTohoku,
	"miyagi":    RegionTohoku,
	"akita":     RegionTohoku,
	"yamagata":  RegionTohoku,
	"fukushima": RegionTohoku,

	// Kanto
	"ibaraki":  RegionKanto,
	"tochigi":  RegionKanto,
	"gunma":    RegionKanto,
	"saitama":  RegionKanto,
	"chiba":    RegionKanto,
	"tokyo":    RegionKanto,
	"kanagawa": RegionKanto,

	// Chubu
	"niigata":   RegionChubu,
	"toyama":    RegionChubu,
	"ishikawa":  RegionChubu,
	"fukui":     RegionChubu,
	"yamanashi": RegionChubu,
	"nagano":    RegionChubu,
	"gifu":      RegionChubu,
	"shizuoka":  RegionChubu,
	"aichi":     RegionChubu,

	// Kansai
	"mie":      RegionKansai,
	"shiga":    RegionKansai,
	"kyoto":    RegionKansai,
	"osaka":    RegionKansai,
	"hyogo":    RegionKansai,
	"nara":     RegionKansai,
	"wakayama": RegionKansai,

	// Chugoku
	"tottori":   RegionChugoku,
	"shimane":   RegionChugoku,
	"okayama":   RegionChugoku,
	"hiroshima": RegionChugoku,
	"yamaguchi": RegionChugoku,

	// Shikoku
	"tokushima": RegionShikoku,
	"kagawa":    RegionShikoku,
	"ehime":     RegionShikoku,
	"kochi":     RegionShikoku,

	// Kyushu
	"fukuoka":   RegionKyushu,
	"saga":      RegionKyushu,
	"nagasaki":  RegionKyushu,
	"kumamoto":  RegionKyushu,
	"oita":      RegionKyushu,
	"miyazaki":  RegionKyushu,
	"kagoshima": RegionKyushu,

	// Okinawa
	"okinawa": RegionOkinawa,
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether the point lies inside the box, edges inclusive.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

type regionBox struct {
	region string
	bounds Bounds
}

// regionBounds holds approximate bounding boxes for the nine regions. The
// boxes overlap a little where coastlines interleave, so lookup order
// matters: the first box that contains a point wins. Keep this a slice, a
// map would randomize the tie-break.
var regionBounds = []regionBox{
	{RegionHokkaido, Bounds{North: 45.65, South: 41.35, East: 148.95, West: 139.30}},
	{RegionTohoku, Bounds{North: 41.60, South: 36.75, East: 142.15, West: 139.15}},
	{RegionKanto, Bounds{North: 37.00, South: 34.85, East: 140.95, West: 138.60}},
	// Shikoku before Kansai so the Tokushima coast does not land in the
	// Kansai box, and before Chugoku so Takamatsu does not land in the
	// Chugoku box across the Inland Sea.
	{RegionShikoku, Bounds{North: 34.45, South: 32.60, East: 134.90, West: 132.55}},
	{RegionKansai, Bounds{North: 35.80, South: 33.35, East: 136.75, West: 134.25}},
	{RegionChugoku, Bounds{North: 35.65, South: 33.90, East: 134.50, West: 130.75}},
	{RegionChubu, Bounds{North: 38.60, South: 34.55, East: 139.90, West: 135.75}},
	{RegionKyushu, Bounds{North: 34.00, South: 30.90, East: 132.20, West: 128.50}},
	{RegionOkinawa, Bounds{North: 27.50, South: 24.00, East: 131.50, West: 122.50}},
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// cityCenters holds representative center coordinates for the cities the
// catalog covers. Keys are normalized (lowercase, no suffixes).
var cityCenters = map[string]Point{
	// Hokkaido
	"sapporo":   {43.0618, 141.3545},
	"hakodate":  {41.7687, 140.7288},
	"otaru":     {43.1907, 140.9947},
	"asahikawa": {43.7706, 142.3650},

	// Tohoku
	"sendai":        {38.2682, 140.8694},
	"aomori":        {40.8224, 140.7403},
	"akita":         {39.7200, 140.1026},
	"morioka":       {39.7036, 141.1527},
	"yamagata":      {38.2404, 140.3633},
	"fukushima":     {37.7608, 140.4747},
	"aizuwakamatsu": {37.4948, 139.9298},

	// Kanto
	"tokyo":      {35.6762, 139.6503},
	"yokohama":   {35.4437, 139.6380},
	"kawasaki":   {35.5309, 139.7029},
	"chiba":      {35.6073, 140.1063},
	"saitama":    {35.8617, 139.6455},
	"kamakura":   {35.3192, 139.5467},
	"nikko":      {36.7199, 139.6982},
	"hakone":     {35.2324, 139.1069},
	"utsunomiya": {36.5551, 139.8828},
	"mito":       {36.3659, 140.4714},

	// Chubu
	"nagoya":    {35.1815, 136.9066},
	"kanazawa":  {36.5944, 136.6256},
	"niigata":   {37.9161, 139.0364},
	"toyama":    {36.6953, 137.2113},
	"nagano":    {36.6513, 138.1810},
	"matsumoto": {36.2380, 137.9720},
	"gifu":      {35.4233, 136.7607},
	"shizuoka":  {34.9756, 138.3827},
	"hamamatsu": {34.7108, 137.7261},
	"takayama":  {36.1408, 137.2520},
	"kofu":      {35.6621, 138.5683},
	"fukui":     {36.0652, 136.2219},

	// Kansai
	"kyoto":    {35.0116, 135.7681},
	"osaka":    {34.6937, 135.5023},
	"kobe":     {34.6901, 135.1956},
	"nara":     {34.6851, 135.8048},
	"otsu":     {35.0045, 135.8686},
	"wakayama": {34.2260, 135.1675},
	"himeji":   {34.8151, 134.6856},
	"sakai":    {34.5733, 135.4830},

	// Chugoku
	"hiroshima": {34.3853, 132.4553},
	"okayama":   {34.6551, 133.9195},
	"kurashiki": {34.5850, 133.7720},
	"matsue":    {35.4723, 133.0505},
	"tottori":   {35.5011, 134.2351},

	// Shikoku
	"takamatsu": {34.3428, 134.0434},
	"matsuyama": {33.8392, 132.7658},
	"kochi":     {33.5597, 133.5311},
	"tokushima": {34.0658, 134.5593},

	// Kyushu
	"fukuoka":    {33.5904, 130.4017},
	"kitakyushu": {33.8835, 130.8752},
	"nagasaki":   {32.7503, 129.8779},
	"kumamoto":   {32.8031, 130.7079},
	"oita":       {33.2382, 131.6126},
	"beppu":      {33.2846, 131.4914},
	"miyazaki":   {31.9111, 131.4239},
	"kagoshima":  {31.5966, 130.5571},

	// Okinawa
	"naha": {26.2124, 127.6792},
}

// primaryCities lists each region's headline cities in itinerary priority
// order. Used when a trip request names regions instead of cities.
var primaryCities = map[string][]string{
	RegionHokkaido: {"sapporo", "hakodate"},
	RegionTohoku:   {"sendai", "aomori"},
	RegionKanto:    {"tokyo", "yokohama", "kamakura"},
	RegionChubu:    {"nagoya", "kanazawa", "takayama"},
	RegionKansai:   {"kyoto", "osaka", "nara", "kobe"},
	RegionChugoku:  {"hiroshima", "okayama"},
	RegionShikoku:  {"matsuyama", "takamatsu"},
	RegionKyushu:   {"fukuoka", "nagasaki"},
	RegionOkinawa:  {"naha"},
}

// PrimaryCities returns a region's headline cities in priority order, or
// nil for an unknown region.
func PrimaryCities(region string) []string {
	cities := primaryCities[region]
	if cities == nil {
		return nil
	}
	out := make([]string, len(cities))
	copy(out, cities)
	return out
}

// RegionOf returns the region a prefecture belongs to.
func RegionOf(prefecture string) (string, bool) {
	r, ok := prefectureToRegion[prefecture]
	return r, ok
}

// RegionContaining returns the first region whose bounding box contains the
// point. Lookup walks regionBounds in declared order so overlapping boxes
// resolve deterministically.
func RegionContaining(lat, lng float64) (string, bool) {
	for _, rb := range regionBounds {
		if rb.bounds.Contains(lat, lng) {
			return rb.region, true
		}
	}
	return "", false
}

// CityCenter returns the representative center of a normalized city name.
func CityCenter(city string) (Point, bool) {
	p, ok := cityCenters[city]
	return p, ok
}

// RegionOfCity resolves a normalized city name to its region via the city
// center and the region bounding boxes.
func RegionOfCity(city string) (string, bool) {
	p, ok := cityCenters[city]
	if !ok {
		return "", false
	}
	return RegionContaining(p.Lat, p.Lng)
}

// KnownPrefectures returns the number of prefectures in the table. Exposed
// for sanity checks in tests and the readiness probe.
func KnownPrefectures() int {
	return len(prefectureToRegion)
}
