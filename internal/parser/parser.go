package parser

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"core/internal/model"
)

// DefaultAroundMargin is the relative half-width applied to "around $X".
const DefaultAroundMargin = 0.20

// Suggested result counts: filtered queries get a wider net so strict
// post-filtering still leaves enough to show.
const (
	suggestLimitDefault  = 15
	suggestLimitFiltered = 30
)

// Parser performs deterministic parameter extraction. It holds only
// immutable configuration, so a single instance is safe for concurrent use.
type Parser struct {
	aroundMargin float64
}

// New creates a Parser. A non-positive margin falls back to the default.
func New(aroundMargin float64) *Parser {
	if aroundMargin <= 0 {
		aroundMargin = DefaultAroundMargin
	}
	return &Parser{aroundMargin: aroundMargin}
}

type span struct {
	start, end int
}

var (
	genderRes   []*regexp.Regexp
	categoryRes []*regexp.Regexp
	sortRes     []*regexp.Regexp
	wsRe        = regexp.MustCompile(`\s+`)
)

func init() {
	genderRes = make([]*regexp.Regexp, len(genderKeywords))
	for i, g := range genderKeywords {
		genderRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(g.word) + `\b`)
	}
	categoryRes = make([]*regexp.Regexp, len(categoryEntries))
	for i, c := range categoryEntries {
		categoryRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(c.keyword) + `\b`)
	}
	sortRes = make([]*regexp.Regexp, len(sortEntries))
	for i, s := range sortEntries {
		pattern := `\b` + strings.ReplaceAll(regexp.QuoteMeta(s.keyword), ` `, `\s+`) + `\b`
		sortRes[i] = regexp.MustCompile(pattern)
	}
}

// Parse extracts every recognizable parameter from a raw query in a single
// deterministic pass. It never fails; an empty or unparseable query yields
// a ParsedQuery with no filters set.
func (p *Parser) Parse(raw string) *model.ParsedQuery {
	norm := normalize(raw)
	pq := &model.ParsedQuery{Original: raw, Normalized: norm}
	if norm == "" {
		pq.Signature = buildSignature(pq)
		return pq
	}

	var spans []span

	ratingSpans := p.extractRating(norm, pq)
	spans = append(spans, ratingSpans...)

	priceSpans := p.extractPrice(norm, ratingSpans, pq)
	spans = append(spans, priceSpans...)

	spans = append(spans, p.extractSort(norm, pq)...)

	pq.Gender = detectGender(norm)

	pq.CleanQuery = cleanQuery(norm, spans)

	// Follow-up detection runs on price-stripped text so "more than $100"
	// is not misread as a continuation request.
	stripped := removeSpans(norm, priceSpans)
	pq.RequestedCount = ExtractFollowUpCount(norm)
	pq.IsFollowUp = pq.RequestedCount != nil || isFollowUpText(stripped)

	pq.Signature = buildSignature(pq)
	return pq
}

// SuggestLimit returns the result count to fetch when the user did not ask
// for a specific number. Filtered queries fetch more because strict
// re-validation may discard results.
func (p *Parser) SuggestLimit(pq *model.ParsedQuery) int {
	if pq.HasPriceFilter() || pq.MinRating != nil {
		return suggestLimitFiltered
	}
	return suggestLimitDefault
}

func (p *Parser) extractPrice(text string, ratingSpans []span, pq *model.ParsedQuery) []span {
	for _, rule := range priceRules {
		matches := rule.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			if overlapsAny(span{m[0], m[1]}, ratingSpans) {
				continue
			}
			if starSuffix.MatchString(text[m[1]:]) {
				continue
			}
			switch rule.kind {
			case priceRange:
				lo := parseGroup(text, m, 1)
				hi := parseGroup(text, m, 2)
				if lo == nil || hi == nil {
					continue
				}
				if *lo > *hi {
					lo, hi = hi, lo
				}
				pq.MinPrice, pq.MaxPrice = lo, hi
			case priceMax:
				v := parseGroup(text, m, 1)
				if v == nil {
					continue
				}
				pq.MaxPrice = v
			case priceMin:
				v := parseGroup(text, m, 1)
				if v == nil {
					continue
				}
				pq.MinPrice = v
			case priceAround:
				v := parseGroup(text, m, 1)
				if v == nil {
					continue
				}
				lo := round2(*v * (1 - p.aroundMargin))
				hi := round2(*v * (1 + p.aroundMargin))
				pq.MinPrice, pq.MaxPrice = &lo, &hi
			case priceDirect:
				v := parseGroup(text, m, 1)
				if v == nil {
					v = parseGroup(text, m, 2)
				}
				if v == nil {
					continue
				}
				if directionIsMin(text, m[0], m[1]) {
					pq.MinPrice = v
				} else {
					pq.MaxPrice = v
				}
			}
			return []span{{m[0], m[1]}}
		}
	}
	return nil
}

// directionIsMin inspects a 20-char window on each side of a bare price
// mention; without a direction word a bare price is treated as a ceiling.
func directionIsMin(text string, start, end int) bool {
	lo := start - 20
	if lo < 0 {
		lo = 0
	}
	hi := end + 20
	if hi > len(text) {
		hi = len(text)
	}
	window := text[lo:start] + " " + text[end:hi]
	for _, w := range minContextWords {
		if strings.Contains(window, w) {
			return true
		}
	}
	return false
}

func (p *Parser) extractRating(text string, pq *model.ParsedQuery) []span {
	for _, rule := range ratingRules {
		m := rule.re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		switch rule.kind {
		case ratingMin, ratingExact:
			v := parseGroup(text, m, 1)
			if v == nil {
				continue
			}
			r := clampRating(*v)
			pq.MinRating = &r
		case ratingHigh:
			r := highRatedFloor
			pq.MinRating = &r
		}
		return []span{{m[0], m[1]}}
	}
	return nil
}

func (p *Parser) extractSort(text string, pq *model.ParsedQuery) []span {
	best := -1
	var bestSpan span
	for i, entry := range sortEntries {
		loc := sortRes[i].FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || len(entry.keyword) > len(sortEntries[best].keyword) {
			best = i
			bestSpan = span{loc[0], loc[1]}
		}
	}
	if best == -1 {
		return nil
	}
	pq.SortOrder = model.SortOrder(sortEntries[best].order)
	return []span{bestSpan}
}

// detectGender returns the strongest gender signal in the text. Longer
// keywords win; family-relationship terms win ties.
func detectGender(text string) model.Gender {
	best := -1
	for i, g := range genderKeywords {
		if !genderRes[i].MatchString(text) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		cur := genderKeywords[best]
		if len(g.word) > len(cur.word) || (len(g.word) == len(cur.word) && g.family && !cur.family) {
			best = i
		}
	}
	if best == -1 {
		return model.GenderUnspecified
	}
	return model.Gender(genderKeywords[best].gender)
}

// AggregateGender takes a majority vote over conversation texts. A tie
// stays unspecified rather than guessing.
func AggregateGender(texts []string) model.Gender {
	var male, female int
	for _, t := range texts {
		switch detectGender(normalize(t)) {
		case model.GenderMale:
			male++
		case model.GenderFemale:
			female++
		}
	}
	if male > female {
		return model.GenderMale
	}
	if female > male {
		return model.GenderFemale
	}
	return model.GenderUnspecified
}

// ExtractCategory finds the most specific product category mention.
// Specificity ties fall back to the fixed category priority.
func ExtractCategory(query string) (keyword, category string, ok bool) {
	text := normalize(query)
	best := -1
	for i, entry := range categoryEntries {
		if !categoryRes[i].MatchString(text) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		cur := categoryEntries[best]
		if entry.specificity > cur.specificity ||
			(entry.specificity == cur.specificity && categoryPriority[entry.category] < categoryPriority[cur.category]) {
			best = i
		}
	}
	if best == -1 {
		return "", "", false
	}
	return categoryEntries[best].keyword, categoryEntries[best].category, true
}

// ExtractFollowUpCount pulls an explicit continuation count ("3 more").
func ExtractFollowUpCount(query string) *int {
	m := followUpCountRe.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// IsFollowUp reports whether the query continues a previous search.
func (p *Parser) IsFollowUp(query string) bool {
	norm := normalize(query)
	if ExtractFollowUpCount(norm) != nil {
		return true
	}
	return isFollowUpText(norm)
}

func isFollowUpText(text string) bool {
	if followUpStrong.MatchString(text) {
		return true
	}
	if !followUpWeak.MatchString(text) {
		return false
	}
	return len(strings.Fields(text)) <= followUpMaxWords
}

func cleanQuery(text string, spans []span) string {
	out := removeSpans(text, spans)
	for _, re := range fillerRes {
		out = re.ReplaceAllString(out, " ")
	}
	out = wsRe.ReplaceAllString(out, " ")
	return strings.Trim(out, " ,.-")
}

func removeSpans(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	var b strings.Builder
	pos := 0
	for _, s := range sorted {
		if s.start > pos {
			b.WriteString(text[pos:s.start])
		}
		if s.end > pos {
			pos = s.end
		}
	}
	if pos < len(text) {
		b.WriteString(text[pos:])
	}
	return b.String()
}

// buildSignature produces the canonical cache key component: the clean
// query plus every extracted filter, in a fixed field order.
func buildSignature(pq *model.ParsedQuery) string {
	parts := []string{TableVersion, pq.CleanQuery}
	if pq.MinPrice != nil {
		parts = append(parts, "minprice:"+formatFloat(*pq.MinPrice))
	}
	if pq.MaxPrice != nil {
		parts = append(parts, "maxprice:"+formatFloat(*pq.MaxPrice))
	}
	if pq.MinRating != nil {
		parts = append(parts, "minrating:"+formatFloat(*pq.MinRating))
	}
	if pq.SortOrder != model.SortNone {
		parts = append(parts, "sort:"+string(pq.SortOrder))
	}
	if pq.Gender != model.GenderUnspecified {
		parts = append(parts, "gender:"+string(pq.Gender))
	}
	return strings.Join(parts, "||")
}

func normalize(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(strings.ToLower(s), " "))
}

func parseGroup(text string, m []int, group int) *float64 {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 || hi < 0 {
		return nil
	}
	v, err := strconv.ParseFloat(text[lo:hi], 64)
	if err != nil {
		return nil
	}
	return &v
}

func overlapsAny(s span, spans []span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

func clampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
