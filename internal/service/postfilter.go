package service

import (
	"math"
	"sort"

	"core/internal/model"
	"core/internal/utils"
)

// Score weights for the default ordering.
const (
	weightTextRank   = 0.5
	weightRating     = 0.3
	weightPopularity = 0.2
)

// ApplyFilters strictly re-validates every result against the final
// filters. Rows from the cache, the model path or vector ordering must
// still satisfy the price and rating bounds before being shown.
func ApplyFilters(products []model.Product, filters model.SearchFilters, featureTerms []string) []model.Product {
	out := products[:0:0]
	for _, p := range products {
		if passesFilters(&p, filters, featureTerms) {
			out = append(out, p)
		}
	}
	return out
}

// revalidateResults applies the same strict bounds to already-scored
// results, such as a cached payload.
func revalidateResults(results []model.ProductSearchResult, filters model.SearchFilters, featureTerms []string) []model.ProductSearchResult {
	out := results[:0:0]
	for _, r := range results {
		if passesFilters(&r.Product, filters, featureTerms) {
			out = append(out, r)
		}
	}
	return out
}

func passesFilters(p *model.Product, filters model.SearchFilters, featureTerms []string) bool {
	if filters.MinPrice != nil && (p.Price == nil || *p.Price < *filters.MinPrice) {
		return false
	}
	if filters.MaxPrice != nil && (p.Price == nil || *p.Price > *filters.MaxPrice) {
		return false
	}
	if filters.MinRating != nil && (p.Stars == nil || *p.Stars < *filters.MinRating) {
		return false
	}
	return matchesFeatures(p, featureTerms)
}

func matchesFeatures(p *model.Product, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := p.Title
	if p.Description != nil {
		text += " " + *p.Description
	}
	for _, f := range p.Features {
		text += " " + f
	}
	for _, term := range terms {
		if !utils.MatchesFeature(term, text) {
			return false
		}
	}
	return true
}

// SortResults orders products by the requested sort, falling back to the
// weighted relevance score. The sort is stable so equal keys keep their
// search ranking.
func SortResults(products []model.Product, order model.SortOrder) {
	switch order {
	case model.SortPriceLowToHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return priceOrMax(products[i].Price) < priceOrMax(products[j].Price)
		})
	case model.SortPriceHighToLow:
		sort.SliceStable(products, func(i, j int) bool {
			return priceOrZero(products[i].Price) > priceOrZero(products[j].Price)
		})
	case model.SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return starsOrZero(products[i].Stars) > starsOrZero(products[j].Stars)
		})
	case model.SortPopular:
		sort.SliceStable(products, func(i, j int) bool {
			return popularity(&products[i]) > popularity(&products[j])
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return relevanceScore(&products[i]) > relevanceScore(&products[j])
		})
	}
}

// ScoreResults wraps products with their relevance score.
func ScoreResults(products []model.Product) []model.ProductSearchResult {
	results := make([]model.ProductSearchResult, len(products))
	for i, p := range products {
		results[i] = model.ProductSearchResult{
			Product: p,
			Score:   relevanceScore(&p),
		}
	}
	return results
}

// relevanceScore blends full-text rank, star rating and review volume.
// Review counts are log-scaled so a million reviews does not drown out
// everything else.
func relevanceScore(p *model.Product) float64 {
	var textScore float64
	if p.TextRank != nil {
		textScore = *p.TextRank
	}
	ratingScore := starsOrZero(p.Stars) / 5.0
	var popScore float64
	if p.ReviewsCount != nil && *p.ReviewsCount > 0 {
		popScore = math.Log10(float64(*p.ReviewsCount)+1) / 6.0
		if popScore > 1 {
			popScore = 1
		}
	}
	score := weightTextRank*textScore + weightRating*ratingScore + weightPopularity*popScore
	if p.IsBestSeller {
		score += 0.05
	}
	return score
}

func popularity(p *model.Product) float64 {
	var pop float64
	if p.BoughtInLastMonth != nil {
		pop = float64(*p.BoughtInLastMonth) * 10
	}
	if p.ReviewsCount != nil {
		pop += float64(*p.ReviewsCount)
	}
	return pop
}

func priceOrMax(p *float64) float64 {
	if p == nil {
		return math.MaxFloat64
	}
	return *p
}

func priceOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func starsOrZero(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}
