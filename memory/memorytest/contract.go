// Package memorytest holds the behaviour every memory.ConversationStore must
// show, shared by the backend test suites.
package memorytest

import (
	"context"
	"testing"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
)

// RunConversationContract exercises append, ordering, session isolation and
// clearing against a fresh store from makeConv.
func RunConversationContract(t *testing.T, makeConv func(t *testing.T) memory.ConversationStore) {
	t.Helper()
	ctx := context.Background()
	cs := makeConv(t)

	msgs, err := cs.GetMessages(ctx, "unknown")
	if err != nil {
		t.Fatalf("get unknown session: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("unknown session should be empty, got %d", len(msgs))
	}

	session := "s1"
	if err := cs.AppendMessage(ctx, session, "user", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := cs.AppendMessage(ctx, session, "assistant", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := cs.AppendMessage(ctx, "s2", "user", "other"); err != nil {
		t.Fatalf("append other session: %v", err)
	}

	msgs, err = cs.GetMessages(ctx, session)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" || msgs[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].Timestamp == 0 {
		t.Fatalf("timestamp not set")
	}

	if err := cs.ClearSession(ctx, session); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	msgs, err = cs.GetMessages(ctx, session)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 after clear, got %d", len(msgs))
	}

	other, err := cs.GetMessages(ctx, "s2")
	if err != nil || len(other) != 1 {
		t.Fatalf("clearing one session touched another: %v %+v", err, other)
	}
}
