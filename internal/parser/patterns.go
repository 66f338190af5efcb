package parser

import "regexp"

// TableVersion identifies the pattern tables and participates in cache
// signatures so that rule changes invalidate previously cached results.
const TableVersion = "v1"

type priceKind int

const (
	priceRange priceKind = iota
	priceMax
	priceMin
	priceAround
	priceDirect
)

type priceRule struct {
	re   *regexp.Regexp
	kind priceKind
}

// Price rules are tried in order; the first valid match wins.
var priceRules = []priceRule{
	{regexp.MustCompile(`(?:from|between)\s*\$?\s*(\d+(?:\.\d+)?)\s*(?:to|and|-)\s*\$?\s*(\d+(?:\.\d+)?)(?:\s*(?:dollars?|bucks?))?`), priceRange},
	// A standalone X-Y pair is a price range only when a currency marker
	// is present; "size 8-10" must stay in the search text.
	{regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)\s*-\s*\$?\s*(\d+(?:\.\d+)?)(?:\s*(?:dollars?|bucks?))?`), priceRange},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-\s*\$\s*(\d+(?:\.\d+)?)`), priceRange},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)\s*(?:dollars?|bucks?)`), priceRange},
	{regexp.MustCompile(`(?:under|below|less\s+than|cheaper\s+than)\s*\$?\s*(\d+(?:\.\d+)?)(?:\s*(?:dollars?|bucks?))?`), priceMax},
	{regexp.MustCompile(`(?:over|above|more\s+than|greater\s+than)\s*\$?\s*(\d+(?:\.\d+)?)(?:\s*(?:dollars?|bucks?))?`), priceMin},
	{regexp.MustCompile(`(?:around|about|approximately)\s*\$?\s*(\d+(?:\.\d+)?)(?:\s*(?:dollars?|bucks?))?`), priceAround},
	{regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*(?:dollars?|bucks?)`), priceDirect},
}

// starSuffix guards against a price rule swallowing a rating phrase
// like "between 4 and 5 stars".
var starSuffix = regexp.MustCompile(`^\s*\+?\s*stars?`)

// Context words that resolve a bare "$X" into a bound direction.
var (
	maxContextWords = []string{"under", "below", "less", "cheaper", "within", "at most", "up to", "budget"}
	minContextWords = []string{"over", "above", "more", "greater", "at least", "starting", "minimum"}
)

type ratingKind int

const (
	ratingMin ratingKind = iota
	ratingExact
	ratingHigh
)

type ratingRule struct {
	re   *regexp.Regexp
	kind ratingKind
}

// highRatedFloor is the implicit minimum for qualitative phrases
// like "highly rated".
const highRatedFloor = 4.0

var ratingRules = []ratingRule{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+\s*stars?`), ratingMin},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*stars?\s*(?:or\s+more|and\s+up|or\s+higher|or\s+above|and\s+above)`), ratingMin},
	{regexp.MustCompile(`(?:at\s+least|minimum(?:\s+of)?)\s*(\d+(?:\.\d+)?)\s*stars?`), ratingMin},
	{regexp.MustCompile(`(?:only|exactly)\s*(\d+(?:\.\d+)?)\s*stars?`), ratingExact},
	{regexp.MustCompile(`(?:highly|top|best)[\s-]+rated|good\s+ratings?`), ratingHigh},
}

type sortEntry struct {
	keyword string
	order   string
}

// Sort keywords, matched as whole phrases. Longest match wins so
// "lowest price" beats a hypothetical "price" entry.
var sortEntries = []sortEntry{
	{"cheapest", "price_low_to_high"},
	{"lowest price", "price_low_to_high"},
	{"budget", "price_low_to_high"},
	{"affordable", "price_low_to_high"},
	{"most expensive", "price_high_to_low"},
	{"highest price", "price_high_to_low"},
	{"premium", "price_high_to_low"},
	{"luxury", "price_high_to_low"},
	{"best rated", "rating"},
	{"top rated", "rating"},
	{"highest rating", "rating"},
	{"highest rated", "rating"},
	{"most reviewed", "popular"},
	{"popular", "popular"},
	{"best selling", "popular"},
	{"bestselling", "popular"},
}

type genderKeyword struct {
	word   string
	gender string
	family bool
}

// Gender keywords are matched on word boundaries. Longer keywords win,
// and family-relationship terms win length ties, so "gift for my wife"
// is not misread off a stray pronoun.
var genderKeywords = []genderKeyword{
	{"gentleman", "male", false},
	{"boyfriend", "male", true},
	{"husband", "male", true},
	{"brother", "male", true},
	{"father", "male", true},
	{"men's", "male", false},
	{"mens", "male", false},
	{"male", "male", false},
	{"boys", "male", false},
	{"guys", "male", false},
	{"men", "male", false},
	{"man", "male", false},
	{"boy", "male", false},
	{"guy", "male", false},
	{"him", "male", false},
	{"his", "male", false},
	{"dad", "male", true},
	{"son", "male", true},
	{"girlfriend", "female", true},
	{"daughter", "female", true},
	{"women's", "female", false},
	{"womens", "female", false},
	{"female", "female", false},
	{"mother", "female", true},
	{"sister", "female", true},
	{"ladies", "female", false},
	{"women", "female", false},
	{"woman", "female", false},
	{"girls", "female", false},
	{"girl", "female", false},
	{"lady", "female", false},
	{"wife", "female", true},
	{"hers", "female", false},
	{"her", "female", false},
	{"mom", "female", true},
}

type categoryEntry struct {
	keyword     string
	category    string
	specificity int
}

// Category priority breaks specificity ties: clothing > shoes > bags > jewelry.
var categoryPriority = map[string]int{
	"clothing": 0,
	"shoes":    1,
	"bags":     2,
	"jewelry":  3,
}

var categoryEntries = []categoryEntry{
	{"dresses", "clothing", 10},
	{"dress", "clothing", 10},
	{"shirts", "clothing", 10},
	{"shirt", "clothing", 10},
	{"jeans", "clothing", 10},
	{"jackets", "clothing", 10},
	{"jacket", "clothing", 10},
	{"clothing", "clothing", 5},
	{"clothes", "clothing", 5},
	{"apparel", "clothing", 5},
	{"sneakers", "shoes", 10},
	{"sneaker", "shoes", 10},
	{"boots", "shoes", 10},
	{"boot", "shoes", 10},
	{"sandals", "shoes", 10},
	{"sandal", "shoes", 10},
	{"heels", "shoes", 10},
	{"shoes", "shoes", 10},
	{"shoe", "shoes", 10},
	{"handbags", "bags", 10},
	{"handbag", "bags", 10},
	{"backpacks", "bags", 10},
	{"backpack", "bags", 10},
	{"purses", "bags", 10},
	{"purse", "bags", 10},
	{"wallets", "bags", 8},
	{"wallet", "bags", 8},
	{"bags", "bags", 5},
	{"bag", "bags", 5},
	{"accessories", "bags", 3},
	{"necklaces", "jewelry", 8},
	{"necklace", "jewelry", 8},
	{"bracelets", "jewelry", 8},
	{"bracelet", "jewelry", 8},
	{"earrings", "jewelry", 8},
	{"watches", "jewelry", 8},
	{"watch", "jewelry", 8},
	{"rings", "jewelry", 8},
	{"ring", "jewelry", 8},
	{"jewelry", "jewelry", 5},
	{"jewellery", "jewelry", 5},
}

// followUpCountRe captures an explicit continuation count ("3 more").
var followUpCountRe = regexp.MustCompile(`(\d+)\s+(?:more|another|other)`)

// Strong phrases flag a follow-up regardless of query length.
var followUpStrong = regexp.MustCompile(`\b(?:show\s+me\s+more|show\s+more|what\s+else|anything\s+else|more\s+options|more\s+like)\b`)

// Weak keywords only flag short queries, where little else is said.
var followUpWeak = regexp.MustCompile(`\b(?:more|another|other|others|similar|different|else|next)\b`)

// followUpMaxWords bounds the short-query heuristic for weak keywords.
const followUpMaxWords = 6

// Lead-in fillers and continuation phrases stripped from the clean query.
var fillerRes = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:can\s+you\s+|could\s+you\s+|please\s+)?(?:show\s+me|find\s+me|find|search\s+for|give\s+me|get\s+me|i\s+want|i'?m\s+looking\s+for|looking\s+for|recommend(?:\s+me)?|suggest)\s+`),
	regexp.MustCompile(`\b\d+\s+(?:more|another|other)\b`),
	regexp.MustCompile(`^\s*(?:more|another|others?|similar|different|else|next)\b`),
	regexp.MustCompile(`\bthat\s+(?:costs?|is|are)\b`),
	regexp.MustCompile(`\bpriced\b`),
	regexp.MustCompile(`\bfor\s*$`),
}
