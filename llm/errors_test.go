package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestLLMErrorText(t *testing.T) {
	plain := NewLLMError(ProviderGemini, ErrorTypeRateLimit, "quota exhausted")
	if plain.Error() != "gemini: quota exhausted" {
		t.Fatalf("Error() = %q", plain.Error())
	}
	coded := &LLMError{Provider: ProviderAnthropic, Code: "overloaded_error", Message: "overloaded"}
	if coded.Error() != "anthropic [overloaded_error]: overloaded" {
		t.Fatalf("Error() = %q", coded.Error())
	}

	cause := errors.New("dial tcp: connection refused")
	wrapped := NewLLMErrorWithCause(ProviderOpenAI, ErrorTypeConnectionError, "connection error", cause)
	if !errors.Is(wrapped, cause) || !wrapped.IsRetryable() {
		t.Fatalf("cause or retryability lost: %+v", wrapped)
	}
}

func TestParseHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      ErrorType
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, "", ErrorTypeInvalidRequest, false},
		{"bad key", http.StatusUnauthorized, "", ErrorTypeAuthentication, false},
		{"forbidden", http.StatusForbidden, "", ErrorTypePermission, false},
		{"rate limited", http.StatusTooManyRequests, "", ErrorTypeRateLimit, true},
		{"overloaded", http.StatusServiceUnavailable, "", ErrorTypeServerError, true},
		{"teapot", 418, "", ErrorTypeUnknown, false},
		{"gemini resource exhausted", http.StatusBadRequest, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, ErrorTypeRateLimit, true},
		{"quota", http.StatusForbidden, "insufficient_quota: billing", ErrorTypeInsufficientQuota, false},
		{"long prompt", http.StatusBadRequest, "prompt is too long: 220000 tokens", ErrorTypeContextLength, false},
		{"gemini safety block", http.StatusBadRequest, `{"promptFeedback":{"blockReason":"SAFETY"}}`, ErrorTypeContentFilter, false},
		{"prohibited content", http.StatusBadRequest, "PROHIBITED_CONTENT", ErrorTypeContentFilter, false},
		{"unknown model", http.StatusNotFound, "model not found: gemini-9", ErrorTypeInvalidModel, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseHTTPError(ProviderGemini, tt.status, tt.body)
			if err.Type != tt.want || err.Retryable != tt.retryable {
				t.Fatalf("got %s retryable=%v, want %s retryable=%v", err.Type, err.Retryable, tt.want, tt.retryable)
			}
			if err.HTTPStatus != tt.status || err.Provider != ProviderGemini {
				t.Fatalf("status/provider not kept: %+v", err)
			}
		})
	}
}

func TestParseHTTPErrorKeepsShortBody(t *testing.T) {
	err := ParseHTTPError(ProviderOpenAI, http.StatusBadGateway, "upstream reset")
	if err.Message != "server error: upstream reset" {
		t.Fatalf("Message = %q", err.Message)
	}
	long := ParseHTTPError(ProviderOpenAI, http.StatusBadGateway, strings.Repeat("x", 500))
	if !strings.HasSuffix(long.Message, "...") || len(long.Message) > 220 {
		t.Fatalf("long body not truncated: %d chars", len(long.Message))
	}
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{context.DeadlineExceeded, ErrorTypeTimeout},
		{fmt.Errorf("call: %w", context.Canceled), ErrorTypeUnknown},
		{errors.New("read: connection reset by peer"), ErrorTypeConnectionError},
		{errors.New("network is unreachable"), ErrorTypeConnectionError},
		{errors.New("unexpected EOF decoding body"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		got := ClassifyTransportError(ProviderAnthropic, tt.err)
		if got.Type != tt.want {
			t.Errorf("%v: got %s, want %s", tt.err, got.Type, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("%v: cause not wrapped", tt.err)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	blocked := fmt.Errorf("agent: %w", NewLLMError(ProviderGemini, ErrorTypeContentFilter, "blocked"))
	if !IsContentFilterError(blocked) || IsRetryableError(blocked) {
		t.Fatalf("content filter predicates wrong")
	}
	if !IsRetryableError(&LLMError{Type: ErrorTypeTimeout}) {
		t.Fatalf("retryability should follow the type")
	}
	if !IsRateLimitError(NewLLMError(ProviderOpenAI, ErrorTypeRateLimit, "")) {
		t.Fatalf("rate limit not detected")
	}
	if !IsAuthenticationError(ParseHTTPError(ProviderOpenAI, http.StatusUnauthorized, "")) {
		t.Fatalf("auth not detected")
	}
	if !IsContextLengthError(ParseHTTPError(ProviderAnthropic, http.StatusBadRequest, "context length exceeded")) {
		t.Fatalf("context length not detected")
	}
	plain := errors.New("boom")
	if _, ok := IsLLMError(plain); ok || IsRetryableError(plain) || IsContentFilterError(plain) {
		t.Fatalf("plain errors are not LLM errors")
	}
}
