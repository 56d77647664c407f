package observability

import "context"

// Tracer starts spans. The process-wide implementation lives in TracerImpl.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (Span, context.Context)
	SpanFromContext(ctx context.Context) Span
}

// Span is one timed operation: an HTTP request, an agent run, a model call,
// a tool call or a screen check.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]interface{})
	End()
	Context() context.Context
}

type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

// Attribute keys shared by the instrumented packages.
const (
	AttrHTTPMethod   = "http.method"
	AttrHTTPRoute    = "http.route"
	AttrHTTPStatus   = "http.status_code"
	AttrRequestID    = "request.id"
	AttrSessionID    = "session.id"
	AttrAgentName    = "agent.name"
	AttrProvider     = "genai.provider"
	AttrModel        = "genai.model"
	AttrFinishReason = "genai.finish_reason"
	AttrToolName     = "genai.tool.name"
	AttrTokensInput  = "genai.tokens.input"
	AttrTokensOutput = "genai.tokens.output"

	AttrScreenBackend    = "screen.backend"
	AttrScreenContext    = "screen.context"
	AttrScreenConfidence = "screen.max_confidence"
)

// No-ops until main installs the configured exporters.
var (
	TracerImpl  Tracer  = &NoOpTracer{}
	MetricsImpl Metrics = &NoOpMetrics{}
)

func SetTracer(t Tracer) { TracerImpl = t }

func SetMetrics(m Metrics) { MetricsImpl = m }

type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &NoOpSpan{}, ctx
}

func (t *NoOpTracer) SpanFromContext(ctx context.Context) Span { return &NoOpSpan{} }

type NoOpSpan struct{}

func (s *NoOpSpan) SetAttribute(key string, value interface{})              {}
func (s *NoOpSpan) SetStatus(code StatusCode, message string)               {}
func (s *NoOpSpan) AddEvent(name string, attributes map[string]interface{}) {}
func (s *NoOpSpan) End()                                                    {}
func (s *NoOpSpan) Context() context.Context                                { return context.Background() }

var (
	_ Tracer = (*NoOpTracer)(nil)
	_ Span   = (*NoOpSpan)(nil)
)
