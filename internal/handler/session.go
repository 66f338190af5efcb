package handler

import (
	"net/http"
	"strconv"

	"core/internal/model"
	"core/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles session-related HTTP requests
type SessionHandler struct {
	sessions    session.Store
	transcripts session.TranscriptStore
	maxMessages int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions session.Store, transcripts session.TranscriptStore, maxMessages int) *SessionHandler {
	return &SessionHandler{
		sessions:    sessions,
		transcripts: transcripts,
		maxMessages: maxMessages,
	}
}

// History handles GET /api/v1/sessions/:id/history
func (h *SessionHandler) History(c *gin.Context) {
	sessionID := c.Param("id")

	limit := h.maxMessages
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v < limit {
			limit = v
		}
	}

	messages, err := h.transcripts.Recent(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history: " + err.Error()})
		return
	}

	sessCtx, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session context: " + err.Error()})
		return
	}

	if messages == nil {
		messages = []model.ChatMessage{}
	}
	c.JSON(http.StatusOK, model.SessionHistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
		Context:   sessCtx,
	})
}

// Clear handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Clear(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.sessions.Clear(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session: " + err.Error()})
		return
	}
	if err := h.transcripts.Clear(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear transcript: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
