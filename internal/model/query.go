package model

// SearchRequest represents a search query request
type SearchRequest struct {
	Query     string         `json:"query" binding:"required"`
	SessionID string         `json:"session_id,omitempty"`
	Options   *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents search options
type SearchOptions struct {
	Limit    int  `json:"limit"`
	Offset   int  `json:"offset"`
	Semantic bool `json:"semantic"`
}

// SearchResponse represents a search result response
type SearchResponse struct {
	SearchID  string                `json:"search_id"`
	SessionID string                `json:"session_id"`
	Results   []ProductSearchResult `json:"results"`
	Total     int                   `json:"total"`
	Parsed    *ParsedQuery          `json:"parsed,omitempty"`
	Proposal  *ToolProposal         `json:"proposal,omitempty"`
	Params    *ReconciledParams     `json:"params,omitempty"`
	Cached    bool                  `json:"cached"`
	Took      int64                 `json:"took_ms"` // Response time in milliseconds
}

// SessionHistoryResponse represents a session transcript with its
// rolling search context
type SessionHistoryResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []ChatMessage  `json:"messages"`
	Context   *SearchContext `json:"context,omitempty"`
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding with product info
type EmbeddingItem struct {
	ASIN      string    `json:"asin" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
	Text      string    `json:"text,omitempty"` // The text used to generate embedding
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
