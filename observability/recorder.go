package observability

import (
	"context"
	"sync"
	"time"
)

// Recorder is an in-process Tracer that keeps every ended span. The demo
// and tests use it to inspect how a query travelled through the agents.
type Recorder struct {
	mu    sync.Mutex
	spans []SpanData
}

type spanKey struct{}

// SpanData is an ended span. Parent is the name of the enclosing span, if any.
type SpanData struct {
	Name       string                 `json:"name"`
	Parent     string                 `json:"parent,omitempty"`
	StartTime  time.Time              `json:"start_time"`
	Duration   time.Duration          `json:"duration"`
	Status     StatusCode             `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
	Events     []Event                `json:"events,omitempty"`
}

type Event struct {
	Name       string                 `json:"name"`
	Time       time.Time              `json:"time"`
	Attributes map[string]interface{} `json:"attributes"`
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	s := &recordedSpan{
		recorder: r,
		data: SpanData{
			Name:       name,
			StartTime:  time.Now(),
			Attributes: map[string]interface{}{},
		},
	}
	if parent, ok := ctx.Value(spanKey{}).(*recordedSpan); ok {
		s.data.Parent = parent.data.Name
	}
	return s, context.WithValue(ctx, spanKey{}, s)
}

func (r *Recorder) SpanFromContext(ctx context.Context) Span {
	if s, ok := ctx.Value(spanKey{}).(*recordedSpan); ok {
		return s
	}
	return &NoOpSpan{}
}

// Spans returns the ended spans in the order they ended.
func (r *Recorder) Spans() []SpanData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SpanData(nil), r.spans...)
}

// Find returns the ended spans called name.
func (r *Recorder) Find(name string) []SpanData {
	var out []SpanData
	for _, s := range r.Spans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.spans = nil
	r.mu.Unlock()
}

type recordedSpan struct {
	recorder *Recorder
	mu       sync.Mutex
	data     SpanData
	ended    bool
}

func (s *recordedSpan) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Attributes[key] = value
	}
}

func (s *recordedSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Status, s.data.Message = code, message
	}
}

func (s *recordedSpan) AddEvent(name string, attributes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.data.Events = append(s.data.Events, Event{Name: name, Time: time.Now(), Attributes: attributes})
	}
}

func (s *recordedSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.data.Duration = time.Since(s.data.StartTime)
	data := s.data
	s.mu.Unlock()

	s.recorder.mu.Lock()
	s.recorder.spans = append(s.recorder.spans, data)
	s.recorder.mu.Unlock()
}

func (s *recordedSpan) Context() context.Context {
	return context.WithValue(context.Background(), spanKey{}, s)
}

var _ Tracer = (*Recorder)(nil)
