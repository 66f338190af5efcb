package session

import (
	"context"
	"encoding/json"
	"fmt"

	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"core/internal/model"
)

const sessionKeyPrefix = "session:"

// RedisStore persists search contexts in Redis with a native TTL,
// so sessions survive process restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed context store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func contextKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":context"
}

func transcriptKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":messages"
}

// Get returns the stored context, or nil when the session is unknown.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.SearchContext, error) {
	data, err := s.client.Get(ctx, contextKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var c model.SearchContext
	if err := json.Unmarshal(data, &c); err != nil {
		// A corrupt entry is dropped rather than poisoning the session.
		logrus.WithField("session_id", sessionID).Warn("dropping unreadable session context")
		s.client.Del(ctx, contextKey(sessionID))
		return nil, nil
	}
	return &c, nil
}

// Update merges the update into the stored context. The read-modify-write
// is last-writer-wins; concurrent updates to one session are not expected.
func (s *RedisStore) Update(ctx context.Context, sessionID string, upd model.ContextUpdate) error {
	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if current == nil {
		current = &model.SearchContext{}
	}
	applyUpdate(current, upd)
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	if err := s.client.Set(ctx, contextKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear removes the session context and transcript.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, contextKey(sessionID), transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

// RedisTranscript keeps the conversation transcript in a Redis list
// trimmed to the most recent messages.
type RedisTranscript struct {
	client      *redis.Client
	ttl         time.Duration
	maxMessages int
}

// NewRedisTranscript creates a Redis-backed transcript store.
func NewRedisTranscript(client *redis.Client, ttl time.Duration, maxMessages int) *RedisTranscript {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &RedisTranscript{client: client, ttl: ttl, maxMessages: maxMessages}
}

// Append pushes a message and trims the list to the cap.
func (s *RedisTranscript) Append(ctx context.Context, sessionID string, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	key := transcriptKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxMessages), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append message: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest messages, oldest first.
func (s *RedisTranscript) Recent(ctx context.Context, sessionID string, n int) ([]model.ChatMessage, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := s.client.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read transcript: %w", err)
	}
	msgs := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear removes the session transcript.
func (s *RedisTranscript) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear transcript: %w", err)
	}
	return nil
}
