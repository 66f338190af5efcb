package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"core/internal/model"
)

const keyPrefix = "search_cache:"

// CachedResult is the stored payload for one search.
type CachedResult struct {
	Results  []model.ProductSearchResult `json:"results"`
	Total    int                         `json:"total"`
	StoredAt time.Time                   `json:"stored_at"`
}

// ResultCache stores search results keyed by the parse signature plus the
// final filter snapshot. Implementations degrade to a miss on any failure.
type ResultCache interface {
	Get(ctx context.Context, signature string, filters model.SearchFilters) (*CachedResult, bool)
	Put(ctx context.Context, signature string, filters model.SearchFilters, result *CachedResult)
}

// Key derives the storage key: an md5 over the canonical JSON of the
// signature and filter snapshot. Two searches share an entry only when
// both the parsed signature and every applied filter agree.
func Key(signature string, filters model.SearchFilters) string {
	payload, _ := json.Marshal(struct {
		Signature string              `json:"signature"`
		Filters   model.SearchFilters `json:"filters"`
	}{signature, filters})
	sum := md5.Sum(payload)
	return keyPrefix + hex.EncodeToString(sum[:])
}
