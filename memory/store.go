package memory

import "context"

// ConversationStore keeps the ordered message history of each session.
// Implementations must be safe for concurrent use; a session that was never
// written reads back as an empty history.
type ConversationStore interface {
	// AppendMessage adds a message to the end of the session's history
	AppendMessage(ctx context.Context, sessionID string, role, content string) error

	// GetMessages retrieves the session's history, oldest first
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// ClearSession removes all messages for a session
	ClearSession(ctx context.Context, sessionID string) error
}

// Message represents a conversation message
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}
