package screen

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/audit"
)

// guard holds the hook logic shared by the cloud and judge screens. check
// is the backend call and must never panic or block past ctx.
type guard struct {
	name          string
	cfg           Config
	check         func(ctx context.Context, content string, label ContextLabel) Result
	inputRefusal  string
	outputRefusal string
	logger        zerolog.Logger
	auditor       audit.Auditor
}

func newGuard(name string, cfg Config, logger *zerolog.Logger, auditor audit.Auditor) guard {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return guard{
		name:    name,
		cfg:     cfg,
		logger:  l.With().Str("screen", name).Logger(),
		auditor: auditor,
	}
}

func (g *guard) beforeModel(ctx context.Context, messages []llm.Message) (string, bool) {
	if !g.cfg.CheckInput {
		return "", false
	}
	content, ok := llm.LastUserMessage(messages)
	if !ok || strings.TrimSpace(content) == "" {
		return "", false
	}
	if g.blocks(ctx, content, LabelUserInput) {
		return g.inputRefusal, true
	}
	return "", false
}

func (g *guard) afterModel(ctx context.Context, response string) (string, bool) {
	if !g.cfg.CheckOutput || strings.TrimSpace(response) == "" {
		return "", false
	}
	if g.blocks(ctx, response, LabelAgentOutput) {
		return g.outputRefusal, true
	}
	return "", false
}

// beforeTool screens the JSON encoding of args. Keys are sorted by the
// encoder, so equal argument maps always screen the same string.
func (g *guard) beforeTool(ctx context.Context, tool string, args map[string]any) (map[string]any, bool) {
	if !g.cfg.CheckToolCalls {
		return nil, false
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		g.logger.Error().Err(err).Str("tool", tool).Msg("cannot encode tool arguments for screening")
		return nil, false
	}
	res := g.screen(ctx, string(encoded), LabelToolInput)
	if !g.enforce(ctx, res, tool) {
		return nil, false
	}
	return map[string]any{
		"error":   ToolBlockedError,
		"details": strings.Join(res.Categories(), ", "),
	}, true
}

func (g *guard) blocks(ctx context.Context, content string, label ContextLabel) bool {
	return g.enforce(ctx, g.screen(ctx, content, label), "")
}

// enforce audits an unsafe result and reports whether it should replace the
// pending call. Dry-run never replaces.
func (g *guard) enforce(ctx context.Context, res Result, tool string) bool {
	if res.Safe {
		return false
	}
	ev := audit.Event{
		At:            time.Now().UTC(),
		Screen:        g.name,
		Label:         string(res.Label),
		Tool:          tool,
		Categories:    res.Categories(),
		MaxConfidence: res.MaxConfidence,
		DryRun:        g.cfg.DryRun,
	}
	if err := g.auditor.Record(ctx, ev); err != nil {
		g.logger.Error().Err(err).Msg("audit record failed")
	}

	entry := g.logger.Warn().Str("context", string(res.Label)).Strs("categories", res.Categories())
	if tool != "" {
		entry = entry.Str("tool", tool)
	}
	if g.cfg.DryRun {
		entry.Bool("dry_run", true).Msgf("[DRY RUN] would block %s", describe(res.Label))
		return false
	}
	entry.Msgf("blocking %s", describe(res.Label))
	return true
}

// screen runs the backend check inside a span and records metrics and logs.
func (g *guard) screen(ctx context.Context, content string, label ContextLabel) Result {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "screen.check")
	defer span.End()
	span.SetAttribute(obs.AttrScreenBackend, g.name)
	span.SetAttribute(obs.AttrScreenContext, string(label))

	labels := map[string]string{"screen": g.name, "context": string(label)}
	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	res := g.check(ctx, content, label)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	res.Label = label

	switch {
	case res.Err != "":
		obs.MetricsImpl.RecordError("screen_error", labels)
		span.SetStatus(obs.StatusCodeError, res.Err)
		g.logger.Error().Str("context", string(label)).Str("error", res.Err).Msg("screen backend failed, allowing content")
	case !res.Safe:
		obs.MetricsImpl.RecordError("unsafe", labels)
		span.SetAttribute(obs.AttrScreenConfidence, res.MaxConfidence)
		span.SetStatus(obs.StatusCodeOk, "")
		entry := g.logger.Warn().
			Str("context", string(label)).
			Strs("categories", res.Categories()).
			Float64("max_confidence", res.MaxConfidence)
		if res.ConfidenceLabel != "" {
			entry = entry.Str("reason", res.Reason).Str("confidence", res.ConfidenceLabel)
		}
		entry.Msg("unsafe content detected")
	default:
		span.SetStatus(obs.StatusCodeOk, "")
		g.logger.Debug().Str("context", string(label)).Msg("content is safe")
	}
	return res
}

func describe(label ContextLabel) string {
	switch label {
	case LabelUserInput:
		return "input"
	case LabelAgentOutput:
		return "output"
	case LabelToolInput:
		return "tool call"
	}
	return string(label)
}
