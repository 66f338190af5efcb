package session

import (
	"context"
	"time"

	"core/internal/model"
)

// Store keeps the rolling search context per session. Implementations
// must treat a missing session as a nil context, not an error.
type Store interface {
	Get(ctx context.Context, sessionID string) (*model.SearchContext, error)
	Update(ctx context.Context, sessionID string, upd model.ContextUpdate) error
	Clear(ctx context.Context, sessionID string) error
}

// TranscriptStore keeps the conversation transcript per session,
// capped to the most recent messages.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, msg model.ChatMessage) error
	Recent(ctx context.Context, sessionID string, n int) ([]model.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

// Compile-time interface checks
var (
	_ Store           = (*MemoryStore)(nil)
	_ Store           = (*RedisStore)(nil)
	_ TranscriptStore = (*MemoryTranscript)(nil)
	_ TranscriptStore = (*RedisTranscript)(nil)
)

// applyUpdate merges an update into a context. Nil fields leave the
// stored value untouched; ShownASINs replaces the list when non-nil.
func applyUpdate(c *model.SearchContext, upd model.ContextUpdate) {
	if upd.Category != nil {
		c.LastCategory = *upd.Category
	}
	if upd.Gender != nil {
		c.Gender = *upd.Gender
	}
	if upd.MinPrice != nil {
		c.MinPrice = upd.MinPrice
	}
	if upd.MaxPrice != nil {
		c.MaxPrice = upd.MaxPrice
	}
	if upd.ResultCount != nil {
		c.LastResultCount = upd.ResultCount
	}
	if upd.ShownASINs != nil {
		c.ShownASINs = upd.ShownASINs
	}
	c.UpdatedAt = time.Now()
}
