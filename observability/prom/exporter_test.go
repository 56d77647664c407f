package prom

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExporterMetricsAndHandler(t *testing.T) {
	e := New()
	e.IncrementRequests(map[string]string{"route": "/chat", "method": "POST", "status_code": "200"})
	e.RecordLatency(3*time.Millisecond, map[string]string{"route": "/chat", "method": "POST", "status_code": "200"})
	e.IncrementRequests(map[string]string{"direction": "request", "model": "gemini-2.0-flash-exp"})
	e.IncrementTokensUsed(7, map[string]string{"direction": "input", "model": "gemini-2.0-flash-exp"})
	e.IncrementRequests(map[string]string{"screen": "cloud", "context": "user_input"})
	e.RecordError("screen_error", map[string]string{"screen": "cloud", "context": "user_input"})
	e.IncrementRequests(map[string]string{"tool_name": "check_stock"})
	e.IncrementRequests(nil)
	e.SetActiveAgents(2)

	rr := httptest.NewRecorder()
	Handler(e).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`csagent_http_requests_total{method="POST",route="/chat",status_code="200"} 1`,
		`csagent_llm_requests_total{model="gemini-2.0-flash-exp"} 1`,
		`csagent_llm_tokens_total{direction="input",model="gemini-2.0-flash-exp"} 7`,
		`csagent_screen_requests_total{context="user_input",screen="cloud"} 1`,
		`csagent_errors_total{kind="screen",type="screen_error"} 1`,
		`csagent_tool_requests_total{tool_name="check_stock"} 1`,
		`csagent_other_requests_total 1`,
		`csagent_active_agents 2`,
		`csagent_http_request_duration_seconds_count{method="POST",route="/chat",status_code="200"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics body missing %q:\n%s", want, body)
		}
	}
}
