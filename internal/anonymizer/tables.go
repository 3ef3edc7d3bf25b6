package anonymizer

// Static generalization tables. These are load-time constants shared
// read-only across goroutines; nothing in this package mutates them.

// firmMapping pairs a lowercase keyword with the generalized firm category
// that replaces it. Matching is case-insensitive substring, first match wins,
// so more specific names must come before shorter ones that could shadow them.
type firmMapping struct {
	Keyword  string
	Category string
}

// GenericFirm is the fallback when a firm value matches no table entry.
const GenericFirm = "a leading financial services firm"

// FirmPlaceholder replaces firm-name keywords inside free text.
const FirmPlaceholder = "the firm"

var firmMappings = []firmMapping{
	{"merrill", "a leading national wirehouse"},
	{"morgan stanley", "a leading national wirehouse"},
	{"wells fargo advisors", "a leading national wirehouse"},
	{"wells fargo", "a leading national wirehouse"},
	{"ubs", "a leading national wirehouse"},
	{"j.p. morgan", "a leading private bank"},
	{"jpmorgan", "a leading private bank"},
	{"goldman", "a leading private bank"},
	{"bank of america", "a leading private bank"},
	{"northern trust", "a leading private bank"},
	{"raymond james", "a premier regional brokerage"},
	{"stifel", "a premier regional brokerage"},
	{"rbc wealth", "a premier regional brokerage"},
	{"janney", "a premier regional brokerage"},
	{"baird", "a premier regional brokerage"},
	{"edward jones", "a major national branch network firm"},
	{"ameriprise", "a major independent broker-dealer"},
	{"lpl", "a major independent broker-dealer"},
	{"commonwealth", "a major independent broker-dealer"},
	{"cetera", "a major independent broker-dealer"},
	{"osaic", "a major independent broker-dealer"},
	{"northwestern mutual", "a leading insurance-affiliated firm"},
	{"equitable", "a leading insurance-affiliated firm"},
	{"mass mutual", "a leading insurance-affiliated firm"},
	{"massmutual", "a leading insurance-affiliated firm"},
	{"fidelity", "a national asset management firm"},
	{"schwab", "a national asset management firm"},
	{"vanguard", "a national asset management firm"},
}

// locationMapping pairs a lowercase city keyword with its major metro area.
// The state is dropped when a mapping applies; the metro label carries all
// the market intelligence the digest needs.
type locationMapping struct {
	Keyword string
	Metro   string
}

// LocationNotDisclosed is the fallback when a record carries no city at all.
const LocationNotDisclosed = "Location not disclosed"

var locationMappings = []locationMapping{
	{"frisco", "Dallas/Fort Worth"},
	{"plano", "Dallas/Fort Worth"},
	{"southlake", "Dallas/Fort Worth"},
	{"fort worth", "Dallas/Fort Worth"},
	{"dallas", "Dallas/Fort Worth"},
	{"scottsdale", "Phoenix"},
	{"tempe", "Phoenix"},
	{"chandler", "Phoenix"},
	{"phoenix", "Phoenix"},
	{"brooklyn", "New York Metro"},
	{"manhattan", "New York Metro"},
	{"white plains", "New York Metro"},
	{"new york", "New York Metro"},
	{"naperville", "Chicago"},
	{"evanston", "Chicago"},
	{"chicago", "Chicago"},
	{"bellevue", "Seattle"},
	{"seattle", "Seattle"},
	{"pasadena", "Los Angeles"},
	{"santa monica", "Los Angeles"},
	{"los angeles", "Los Angeles"},
	{"st. petersburg", "Tampa Bay"},
	{"clearwater", "Tampa Bay"},
	{"tampa", "Tampa Bay"},
	{"boca raton", "South Florida"},
	{"fort lauderdale", "South Florida"},
	{"miami", "South Florida"},
	{"alpharetta", "Atlanta"},
	{"marietta", "Atlanta"},
	{"atlanta", "Atlanta"},
}

// metroLabels holds every value locationMappings can produce. A value in
// this set is already generalized output and must pass through untouched;
// not every metro label contains one of its own keywords ("South Florida"
// does not), so the keyword scan alone cannot guarantee that.
var metroLabels = func() map[string]bool {
	set := make(map[string]bool, len(locationMappings))
	for _, m := range locationMappings {
		set[m.Metro] = true
	}
	return set
}()

// aumRange is one bucket of the AUM/production generalization table.
// Bounds are in millions of dollars and the interval is half-open:
// a value v falls in the bucket when MinMillions <= v < MaxMillions.
type aumRange struct {
	MinMillions float64
	MaxMillions float64
	Label       string
}

// NotDisclosed is the output for empty or unparseable currency values.
const NotDisclosed = "not disclosed"

// aumRanges holds the 13 fixed buckets. The last bucket is open-ended and
// doubles as the default for anything above $5B.
var aumRanges = []aumRange{
	{0, 100, "under $100M range"},
	{100, 250, "$100M-$250M range"},
	{250, 500, "$250M-$500M range"},
	{500, 750, "$500M-$750M range"},
	{750, 1000, "$750M-$1B range"},
	{1000, 1500, "$1B-$1.5B range"},
	{1500, 2000, "$1.5B-$2B range"},
	{2000, 2500, "$2B-$2.5B range"},
	{2500, 3000, "$2.5B-$3B range"},
	{3000, 3500, "$3B-$3.5B range"},
	{3500, 4000, "$3.5B-$4B range"},
	{4000, 5000, "$4B-$5B range"},
	{5000, -1, "$5B+ range"},
}
