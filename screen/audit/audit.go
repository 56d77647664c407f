// Package audit records screening violations. Events carry categories and
// scores only, never the screened content.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event describes one unsafe verdict.
type Event struct {
	At            time.Time
	Screen        string
	Label         string
	Tool          string
	Categories    []string
	MaxConfidence float64
	DryRun        bool
}

// Auditor receives violation events. Record must be safe for concurrent use.
type Auditor interface {
	Record(ctx context.Context, e Event) error
}

// LogAuditor writes events to a zerolog logger.
type LogAuditor struct {
	logger zerolog.Logger
}

// NewLogAuditor returns an auditor logging at warn level on logger.
func NewLogAuditor(logger zerolog.Logger) *LogAuditor {
	return &LogAuditor{logger: logger.With().Str("component", "audit").Logger()}
}

func (a *LogAuditor) Record(_ context.Context, e Event) error {
	ev := a.logger.Warn().
		Time("at", e.At).
		Str("screen", e.Screen).
		Str("context", e.Label).
		Strs("categories", e.Categories).
		Float64("max_confidence", e.MaxConfidence).
		Bool("dry_run", e.DryRun)
	if e.Tool != "" {
		ev = ev.Str("tool", e.Tool)
	}
	ev.Msg("screen violation")
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

var (
	_ Auditor = (*LogAuditor)(nil)
	_ Auditor = Nop{}
)
