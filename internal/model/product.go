package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Product represents a catalog product
type Product struct {
	ID                int64           `json:"id" db:"id"`
	ASIN              string          `json:"asin" db:"asin"`
	Title             string          `json:"title" db:"title"`
	Category          *string         `json:"category,omitempty" db:"category"`
	Brand             *string         `json:"brand,omitempty" db:"brand"`
	Price             *float64        `json:"price,omitempty" db:"price"`
	ListPrice         *float64        `json:"list_price,omitempty" db:"list_price"`
	Stars             *float64        `json:"stars,omitempty" db:"stars"`
	ReviewsCount      *int            `json:"reviews_count,omitempty" db:"reviews_count"`
	BoughtInLastMonth *int            `json:"bought_in_last_month,omitempty" db:"bought_in_last_month"`
	IsBestSeller      bool            `json:"is_best_seller" db:"is_best_seller"`
	ImageURL          *string         `json:"image_url,omitempty" db:"image_url"`
	ProductURL        *string         `json:"product_url,omitempty" db:"product_url"`
	Description       *string         `json:"description,omitempty" db:"description"`
	Features          JSONArray       `json:"features,omitempty" db:"features"`
	Attributes        JSONMap         `json:"attributes,omitempty" db:"attributes"`
	Embedding         pgvector.Vector `json:"-" db:"embedding"`
	TextRank          *float64        `json:"text_rank,omitempty" db:"text_rank"` // Full-text search ranking
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductSearchResult represents a search result with ranking metadata
type ProductSearchResult struct {
	Product
	Score float64 `json:"score"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), j)
	}
	return json.Unmarshal(bytes, j)
}
