package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rds "github.com/redis/go-redis/v9"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
)

// ConversationStore keeps each session as a Redis list of JSON messages.
// The key's TTL is refreshed on every append, so idle sessions expire.
type ConversationStore struct {
	client      rds.UniversalClient
	prefix      string
	ttl         time.Duration
	maxMessages int64
}

// NewConversationStore creates a store using client. maxMessages, when
// positive, trims each session list to its most recent entries.
func NewConversationStore(client rds.UniversalClient, prefix string, ttl time.Duration, maxMessages int) *ConversationStore {
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl, maxMessages: int64(maxMessages)}
}

// NewClient opens a client from a redis:// URL.
func NewClient(url string) (*rds.Client, error) {
	opts, err := rds.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return rds.NewClient(opts), nil
}

func (cs *ConversationStore) convKey(sessionID string) string {
	p := cs.prefix
	if p != "" {
		p += ":"
	}
	return fmt.Sprintf("%sconversation:%s", p, sessionID)
}

// AppendMessage implements memory.ConversationStore interface
func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, role, content string) error {
	key := cs.convKey(sessionID)
	b, err := json.Marshal(memory.Message{Role: role, Content: content, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}

	pipe := cs.client.TxPipeline()
	pipe.RPush(ctx, key, b)
	if cs.maxMessages > 0 {
		pipe.LTrim(ctx, key, -cs.maxMessages, -1)
	}
	if cs.ttl > 0 {
		pipe.Expire(ctx, key, cs.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// GetMessages implements memory.ConversationStore interface
func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	vals, err := cs.client.LRange(ctx, cs.convKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("decode message in session %s: %w", sessionID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ClearSession implements memory.ConversationStore interface
func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	return cs.client.Del(ctx, cs.convKey(sessionID)).Err()
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
