package utils

import (
	"strconv"
	"strings"
)

// featureAliases maps a canonical feature keyword to the phrasings that
// count as a mention of it in product text.
var featureAliases = map[string][]string{
	"leather":    {"leather", "genuine leather", "faux leather", "pu leather"},
	"wireless":   {"wireless", "bluetooth", "cordless"},
	"waterproof": {"waterproof", "water resistant", "water-resistant"},
	"cotton":     {"cotton", "100% cotton", "organic cotton"},
	"silk":       {"silk", "satin"},
	"wool":       {"wool", "merino", "cashmere"},
	"gold":       {"gold", "golden", "gold-plated", "gold plated"},
	"silver":     {"silver", "sterling silver", "sterling"},
	"running":    {"running", "runner", "jogging"},
	"casual":     {"casual", "everyday"},
	"formal":     {"formal", "dress", "business"},
	"vintage":    {"vintage", "retro", "classic"},
	"kids":       {"kids", "children", "child", "toddler"},
	"portable":   {"portable", "travel", "compact", "foldable"},
	"organic":    {"organic", "natural", "eco-friendly"},
}

// ExtractFeatureTerms returns the canonical feature keywords mentioned
// in a query, in deterministic order.
func ExtractFeatureTerms(query string) []string {
	q := " " + strings.ToLower(strings.TrimSpace(query)) + " "
	var terms []string
	for _, key := range featureKeys {
		if strings.Contains(q, " "+key+" ") || strings.Contains(q, " "+key+"s ") {
			terms = append(terms, key)
		}
	}
	return terms
}

// featureKeys is the sorted key list so extraction order is stable.
var featureKeys = func() []string {
	keys := make([]string, 0, len(featureAliases))
	for k := range featureAliases {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}()

// MatchesFeature reports whether product text mentions the feature term
// directly or through one of its aliases.
func MatchesFeature(term, text string) bool {
	termLower := strings.ToLower(strings.TrimSpace(term))
	textLower := strings.ToLower(text)
	if termLower == "" {
		return true
	}
	if strings.Contains(textLower, termLower) {
		return true
	}
	for _, alias := range featureAliases[termLower] {
		if strings.Contains(textLower, alias) {
			return true
		}
	}
	return false
}

// BuildFeatureConditions builds ILIKE conditions over title and
// description for each feature term, continuing from paramIndex.
// Returns the conditions, their bind parameters and the next index.
func BuildFeatureConditions(terms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(terms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range terms {
		aliases := featureAliases[strings.ToLower(term)]
		if len(aliases) == 0 {
			aliases = []string{term}
		}
		var ors []string
		for _, alias := range aliases {
			placeholder := "$" + strconv.Itoa(paramIndex)
			ors = append(ors, "title ILIKE "+placeholder+" OR description ILIKE "+placeholder)
			params = append(params, "%"+alias+"%")
			paramIndex++
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	return conditions, params, paramIndex
}
