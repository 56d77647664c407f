package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestLogAuditor(t *testing.T) {
	var buf bytes.Buffer
	a := NewLogAuditor(zerolog.New(&buf))
	err := a.Record(context.Background(), Event{
		Screen:        "cloud",
		Label:         "user_input",
		Categories:    []string{"JAILBREAK"},
		MaxConfidence: 0.8,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["screen"] != "cloud" || entry["context"] != "user_input" || entry["max_confidence"] != 0.8 {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["tool"]; ok {
		t.Fatalf("tool should be omitted when empty")
	}
}

type fakeExec struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgresAuditorRecord(t *testing.T) {
	db := &fakeExec{}
	a := newPostgresAuditor(db, "")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := a.Record(context.Background(), Event{At: at, Screen: "judge", Label: "agent_output", Categories: []string{"LLM_JUDGE"}, MaxConfidence: 0.9}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(db.sql[0], "INSERT INTO screen_violations") {
		t.Fatalf("unexpected sql %q", db.sql[0])
	}
	args := db.args[0]
	if args[0] != at || args[1] != "judge" || args[2] != "agent_output" {
		t.Fatalf("unexpected args %v", args)
	}
	if tool, ok := args[3].(*string); !ok || tool != nil {
		t.Fatalf("empty tool should be a nil *string, got %#v", args[3])
	}

	if err := a.Record(context.Background(), Event{Screen: "cloud", Tool: "check_stock"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if cats, ok := db.args[1][4].([]string); !ok || cats == nil {
		t.Fatalf("nil categories should be stored as an empty array, got %#v", db.args[1][4])
	}
	if at, ok := db.args[1][0].(time.Time); !ok || at.IsZero() {
		t.Fatalf("zero time should default to now")
	}
}

func TestPostgresAuditorErrors(t *testing.T) {
	db := &fakeExec{err: errors.New("down")}
	a := newPostgresAuditor(db, "audit_log")
	if err := a.EnsureSchema(context.Background()); err == nil || !strings.Contains(db.sql[0], "audit_log") {
		t.Fatalf("expected schema error on custom table, got %v", err)
	}
	if err := a.Record(context.Background(), Event{}); err == nil {
		t.Fatalf("expected insert error")
	}
}

func TestPostgresAuditorLive(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	a, err := NewPostgresAuditor(ctx, dsn, "screen_violations_test")
	if err != nil {
		t.Skipf("connect: %v", err)
	}
	defer a.Close()
	if err := a.Record(ctx, Event{Screen: "cloud", Label: "user_input", Categories: []string{"MALWARE"}, MaxConfidence: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
}
