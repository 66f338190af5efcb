package handler

import (
	"net/http"
	"strconv"

	"core/internal/service"

	"github.com/gin-gonic/gin"
)

// DebugHandler exposes the deterministic parser and the consistency
// monitor for inspection. Not meant for end users.
type DebugHandler struct {
	searchService *service.SearchService
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler(searchService *service.SearchService) *DebugHandler {
	return &DebugHandler{searchService: searchService}
}

// ParseQuery handles GET /api/v1/debug/parse-query?q=
// It runs extraction only, without searching or touching any session.
func (h *DebugHandler) ParseQuery(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}

	c.JSON(http.StatusOK, h.searchService.Parser().Parse(query))
}

// ConsistencyReport handles GET /api/v1/debug/consistency-report?q=
// An empty q reports over the whole extraction log.
func (h *DebugHandler) ConsistencyReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.searchService.Monitor().Report(c.Query("q")))
}

// QueryHistory handles GET /api/v1/debug/query-history/:query
func (h *DebugHandler) QueryHistory(c *gin.Context) {
	query := c.Param("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	entries := h.searchService.Monitor().History(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(entries),
		"entries": entries,
	})
}

// TestConsistency handles GET /api/v1/debug/test-consistency?q=&runs=
// It replays extraction for one query and reports whether every run
// produced the same parameters.
func (h *DebugHandler) TestConsistency(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}

	runs := 5
	if raw := c.Query("runs"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 50 {
			runs = v
		}
	}

	p := h.searchService.Parser()
	first := p.Parse(query)
	deterministic := true
	for i := 1; i < runs; i++ {
		if p.Parse(query).Signature != first.Signature {
			deterministic = false
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":         query,
		"runs":          runs,
		"deterministic": deterministic,
		"parsed":        first,
		"report":        h.searchService.Monitor().Report(query),
	})
}

// ExportLog handles GET /api/v1/debug/consistency-log
func (h *DebugHandler) ExportLog(c *gin.Context) {
	entries := h.searchService.Monitor().Export()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// ClearLog handles DELETE /api/v1/debug/consistency-log
func (h *DebugHandler) ClearLog(c *gin.Context) {
	h.searchService.Monitor().Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
