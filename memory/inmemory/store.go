package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
)

// ConversationStore implements memory.ConversationStore in process memory.
// MaxMessages, when positive, caps each session to its most recent messages.
type ConversationStore struct {
	mu          sync.RWMutex
	sessions    map[string][]memory.Message
	MaxMessages int
}

// NewConversationStore creates a new in-memory conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{sessions: make(map[string][]memory.Message)}
}

// AppendMessage implements memory.ConversationStore interface
func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, role, content string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	msgs := append(cs.sessions[sessionID], memory.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Unix(),
	})
	if cs.MaxMessages > 0 && len(msgs) > cs.MaxMessages {
		msgs = append([]memory.Message(nil), msgs[len(msgs)-cs.MaxMessages:]...)
	}
	cs.sessions[sessionID] = msgs
	return nil
}

// GetMessages implements memory.ConversationStore interface
func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	msgs := cs.sessions[sessionID]
	out := make([]memory.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ClearSession implements memory.ConversationStore interface
func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.sessions, sessionID)
	return nil
}

// Sessions returns the ids of sessions with stored history.
func (cs *ConversationStore) Sessions() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.sessions))
	for id := range cs.sessions {
		ids = append(ids, id)
	}
	return ids
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
