package handler

import (
	"net/http"

	"core/internal/model"
	"core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	defaultLimit  int
	maxLimit      int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, defaultLimit, maxLimit int) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// A client without a session gets one minted so follow-ups work.
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	// Explicit options are validated and capped; absent options leave
	// the limit to the reconciler.
	if req.Options != nil {
		if req.Options.Limit < 0 {
			req.Options.Limit = h.defaultLimit
		}
		if req.Options.Limit > h.maxLimit {
			req.Options.Limit = h.maxLimit
		}
		if req.Options.Offset < 0 {
			req.Options.Offset = 0
		}
	}

	response, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetProduct handles GET /api/v1/products/:asin
func (h *SearchHandler) GetProduct(c *gin.Context) {
	asin := c.Param("asin")
	if asin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product ASIN"})
		return
	}

	product, err := h.searchService.GetProduct(c.Request.Context(), asin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get product: " + err.Error()})
		return
	}

	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}
