package model

// SortOrder enumerates the supported result orderings
type SortOrder string

const (
	SortPriceLowToHigh SortOrder = "price_low_to_high"
	SortPriceHighToLow SortOrder = "price_high_to_low"
	SortRating         SortOrder = "rating"
	SortPopular        SortOrder = "popular"
	SortNone           SortOrder = ""
)

// Gender enumerates the recognized gender targets
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = ""
)

// ParsedQuery is the deterministic extraction result for a single query.
// Identical input always produces an identical value.
type ParsedQuery struct {
	Original       string    `json:"original_query"`
	Normalized     string    `json:"normalized_query"`
	MinPrice       *float64  `json:"min_price,omitempty"`
	MaxPrice       *float64  `json:"max_price,omitempty"`
	MinRating      *float64  `json:"min_rating,omitempty"`
	SortOrder      SortOrder `json:"sort_order,omitempty"`
	Gender         Gender    `json:"gender,omitempty"`
	IsFollowUp     bool      `json:"is_follow_up"`
	RequestedCount *int      `json:"requested_count,omitempty"`
	CleanQuery     string    `json:"clean_query"`
	Signature      string    `json:"cache_signature"`
}

// HasPriceFilter reports whether any price bound was extracted
func (p *ParsedQuery) HasPriceFilter() bool {
	return p.MinPrice != nil || p.MaxPrice != nil
}

// ToolProposal is the search parameter set proposed by the language model.
// All fields are optional; a nil proposal means the model offered nothing.
type ToolProposal struct {
	Query     *string  `json:"query,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	SortBy    *string  `json:"sort_by,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
	Offset    *int     `json:"offset,omitempty"`
}

// SearchFilters represents the structured filter set applied to a search
type SearchFilters struct {
	MinPrice  *float64  `json:"min_price,omitempty"`
	MaxPrice  *float64  `json:"max_price,omitempty"`
	MinRating *float64  `json:"min_rating,omitempty"`
	SortOrder SortOrder `json:"sort_order,omitempty"`
	Gender    Gender    `json:"gender,omitempty"`
}

// ReconciledParams is the final parameter set after merging deterministic
// extraction, the model proposal and session context
type ReconciledParams struct {
	Query      string        `json:"query"`
	Filters    SearchFilters `json:"filters"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
	Category   string        `json:"category,omitempty"`
	IsFollowUp bool          `json:"is_follow_up"`
}
