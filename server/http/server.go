// Package http serves an agent over JSON and server-sent-event endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
)

// Server wraps an agent with HTTP endpoints
type Server struct {
	agent  core.Agent
	config Config
	server *http.Server
	logger zerolog.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	// Logger defaults to the global zerolog logger
	Logger *zerolog.Logger
}

// NewServer creates a new HTTP server for an agent
func NewServer(agent core.Agent, config Config) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Server{
		agent:  agent,
		config: config,
		logger: logger.With().Str("component", "http").Logger(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	var handler http.Handler = mux
	if config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.observe(handler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the full handler chain, for mounting or tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/chat/stream", s.streamHandler)
	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics)
	}
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// ChatResponse represents a chat response. ReplacedBy is set when a screen
// or the model provider substituted a refusal for the agent's answer.
type ChatResponse struct {
	Message    string            `json:"message"`
	SessionID  string            `json:"session_id,omitempty"`
	ReplacedBy string            `json:"replaced_by,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func responseFor(sessionID string, m core.Message) ChatResponse {
	return ChatResponse{
		Message:    m.Content,
		SessionID:  sessionID,
		ReplacedBy: m.Meta[core.MetaReplaced],
		Meta:       m.Meta,
	}
}

// healthHandler provides a health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decode reads a chat request and turns it into the agent input. A request
// without a session id starts a new session.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (ChatRequest, core.Message, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return ChatRequest{}, core.Message{}, false
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return req, core.Message{}, false
	}
	if req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return req, core.Message{}, false
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	meta := make(map[string]string, len(req.Meta)+1)
	for k, v := range req.Meta {
		meta[k] = v
	}
	meta[core.MetaSessionID] = req.SessionID
	return req, core.Message{Role: "user", Content: req.Message, Meta: meta}, true
}

// chatHandler handles chat requests
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	req, input, ok := s.decode(w, r)
	if !ok {
		return
	}

	response, err := s.agent.Run(r.Context(), input)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("agent error")
		s.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if replaced := response.Meta[core.MetaReplaced]; replaced != "" {
		s.logger.Info().Str("session_id", req.SessionID).Str("replaced_by", replaced).Msg("answer replaced")
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responseFor(req.SessionID, response))
}

// streamHandler handles streaming chat requests
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	req, input, ok := s.decode(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	output := make(chan core.Message)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.agent.RunStream(r.Context(), input, output)
	}()

	event := func(name string, v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
		flusher.Flush()
	}
	done := func() { event("done", struct{}{}) }
	for {
		select {
		case message, ok := <-output:
			if !ok {
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("streaming error")
					event("error", ChatResponse{SessionID: req.SessionID, Error: "Internal server error"})
				}
				done()
				return
			}
			event("message", responseFor(req.SessionID, message))
		case <-r.Context().Done():
			done()
			return
		}
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ChatResponse{Error: message})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe tags each request with an id, opens a span and records request
// metrics labelled by route, method and status.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := obs.ExtractHTTPContext(r.Context(), r)
		obs.InjectHTTPHeaders(w, ctx)
		span, ctx := obs.TracerImpl.StartSpan(ctx, "http.request")
		defer span.End()
		span.SetAttribute(obs.AttrHTTPMethod, r.Method)
		span.SetAttribute(obs.AttrHTTPRoute, r.URL.Path)
		requestID, _ := obs.RequestIDFromContext(ctx)
		span.SetAttribute(obs.AttrRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		labels := map[string]string{
			"route":       r.URL.Path,
			"method":      r.Method,
			"status_code": strconv.Itoa(rec.status),
		}
		obs.MetricsImpl.IncrementRequests(labels)
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)
		span.SetAttribute(obs.AttrHTTPStatus, rec.status)
		if rec.status >= http.StatusInternalServerError {
			obs.MetricsImpl.RecordError("http_"+strconv.Itoa(rec.status), labels)
			span.SetStatus(obs.StatusCodeError, http.StatusText(rec.status))
		} else {
			span.SetStatus(obs.StatusCodeOk, "")
		}

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.Port).Msg("HTTP server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
