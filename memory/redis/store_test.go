package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rds "github.com/redis/go-redis/v9"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory/memorytest"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *rds.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rds.NewClient(&rds.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConversationContract_Redis(t *testing.T) {
	memorytest.RunConversationContract(t, func(t *testing.T) memory.ConversationStore {
		_, client := newTestClient(t)
		return NewConversationStore(client, "test", time.Minute, 0)
	})
}

func TestAppendRefreshesTTL(t *testing.T) {
	mr, client := newTestClient(t)
	cs := NewConversationStore(client, "cs", time.Minute, 0)
	ctx := context.Background()

	if err := cs.AppendMessage(ctx, "s1", "user", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if ttl := mr.TTL("cs:conversation:s1"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	msgs, err := cs.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expired session should be empty, got %d", len(msgs))
	}
}

func TestAppendTrimsToMaxMessages(t *testing.T) {
	_, client := newTestClient(t)
	cs := NewConversationStore(client, "", 0, 2)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		if err := cs.AppendMessage(ctx, "s", "user", c); err != nil {
			t.Fatalf("append %s: %v", c, err)
		}
	}
	msgs, _ := cs.GetMessages(ctx, "s")
	if len(msgs) != 2 || msgs[0].Content != "b" || msgs[1].Content != "c" {
		t.Fatalf("unexpected window: %+v", msgs)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not-a-url://"); err == nil {
		t.Fatalf("expected parse error")
	}
}
