package model

import "time"

// SearchContext is the rolling per-session search state used to resolve
// elliptical follow-up queries
type SearchContext struct {
	LastCategory    string    `json:"last_category,omitempty"`
	Gender          Gender    `json:"gender,omitempty"`
	MinPrice        *float64  `json:"min_price,omitempty"`
	MaxPrice        *float64  `json:"max_price,omitempty"`
	LastResultCount *int      `json:"last_result_count,omitempty"`
	ShownASINs      []string  `json:"shown_asins,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsEmpty reports whether the context carries any usable state
func (c *SearchContext) IsEmpty() bool {
	return c == nil || (c.LastCategory == "" && c.Gender == GenderUnspecified &&
		c.MinPrice == nil && c.MaxPrice == nil && len(c.ShownASINs) == 0)
}

// ContextUpdate carries the fields to write into a session context.
// Nil fields are left untouched; ShownASINs replaces the stored list
// when non-nil.
type ContextUpdate struct {
	Category    *string
	Gender      *Gender
	MinPrice    *float64
	MaxPrice    *float64
	ResultCount *int
	ShownASINs  []string
}

// ChatMessage is a single conversation turn
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
