package session

import (
	"context"
	"sync"
	"time"

	"core/internal/model"
)

// MemoryStore is the in-process fallback used when Redis is not
// configured. Entries expire lazily on access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	ctx       model.SearchContext
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory context store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
	}
}

// Get returns the stored context, or nil when the session is unknown
// or expired.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*model.SearchContext, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return nil, nil
	}
	c := e.ctx
	c.ShownASINs = append([]string(nil), e.ctx.ShownASINs...)
	return &c, nil
}

// Update merges the update into the stored context, creating it if needed.
func (s *MemoryStore) Update(_ context.Context, sessionID string, upd model.ContextUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		e = &memoryEntry{}
		s.entries[sessionID] = e
	}
	applyUpdate(&e.ctx, upd)
	e.expiresAt = time.Now().Add(s.ttl)
	return nil
}

// Clear removes the session context.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live sessions, for stats endpoints.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MemoryTranscript keeps recent conversation messages in process.
type MemoryTranscript struct {
	mu          sync.RWMutex
	messages    map[string][]model.ChatMessage
	maxMessages int
}

// NewMemoryTranscript creates a transcript store capped at maxMessages
// per session.
func NewMemoryTranscript(maxMessages int) *MemoryTranscript {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &MemoryTranscript{
		messages:    make(map[string][]model.ChatMessage),
		maxMessages: maxMessages,
	}
}

// Append adds a message, dropping the oldest beyond the cap.
func (s *MemoryTranscript) Append(_ context.Context, sessionID string, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.messages[sessionID], msg)
	if len(msgs) > s.maxMessages {
		msgs = msgs[len(msgs)-s.maxMessages:]
	}
	s.messages[sessionID] = msgs
	return nil
}

// Recent returns up to n of the latest messages, oldest first.
func (s *MemoryTranscript) Recent(_ context.Context, sessionID string, n int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Clear removes the session transcript.
func (s *MemoryTranscript) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.messages, sessionID)
	s.mu.Unlock()
	return nil
}
