package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies provider failures independently of the SDK that
// reported them.
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeInvalidModel      ErrorType = "invalid_model"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeContentFilter     ErrorType = "content_filter"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
)

// Retryable reports whether a failure of this type may succeed on retry.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	}
	return false
}

// LLMError is a classified provider failure.
type LLMError struct {
	Type       ErrorType         `json:"type"`
	Message    string            `json:"message"`
	Code       string            `json:"code,omitempty"`
	Provider   Provider          `json:"provider"`
	Model      string            `json:"model,omitempty"`
	HTTPStatus int               `json:"http_status,omitempty"`
	Retryable  bool              `json:"retryable"`
	RetryAfter int               `json:"retry_after,omitempty"` // seconds
	Details    map[string]string `json:"details,omitempty"`
	Cause      error             `json:"-"`
}

func (e *LLMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *LLMError) Unwrap() error { return e.Cause }

func (e *LLMError) IsRetryable() bool { return e.Retryable }

func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{
		Type:      errorType,
		Message:   message,
		Provider:  provider,
		Retryable: errorType.Retryable(),
	}
}

func NewLLMErrorWithCause(provider Provider, errorType ErrorType, message string, cause error) *LLMError {
	err := NewLLMError(provider, errorType, message)
	err.Cause = cause
	return err
}

var statusTypes = map[int]struct {
	typ ErrorType
	msg string
}{
	http.StatusBadRequest:          {ErrorTypeInvalidRequest, "invalid request"},
	http.StatusUnauthorized:        {ErrorTypeAuthentication, "authentication failed"},
	http.StatusForbidden:           {ErrorTypePermission, "permission denied"},
	http.StatusNotFound:            {ErrorTypeNotFound, "resource not found"},
	http.StatusTooManyRequests:     {ErrorTypeRateLimit, "rate limit exceeded"},
	http.StatusInternalServerError: {ErrorTypeServerError, "server error"},
	http.StatusBadGateway:          {ErrorTypeServerError, "server error"},
	http.StatusServiceUnavailable:  {ErrorTypeServerError, "service unavailable"},
	http.StatusGatewayTimeout:      {ErrorTypeServerError, "gateway timeout"},
}

// bodyPatterns refine a status classification from the response body. The
// first match wins. Gemini reports prompts it refuses with SAFETY or
// PROHIBITED_CONTENT block reasons, which land as content_filter.
var bodyPatterns = []struct {
	typ  ErrorType
	msg  string
	subs []string
}{
	{ErrorTypeRateLimit, "rate limit exceeded", []string{"rate limit", "too many requests", "resource_exhausted"}},
	{ErrorTypeInsufficientQuota, "insufficient quota", []string{"insufficient quota", "quota exceeded", "insufficient_quota"}},
	{ErrorTypeContextLength, "context length exceeded", []string{"context length", "token limit", "prompt is too long"}},
	{ErrorTypeContentFilter, "content blocked by provider safety filter", []string{"content filter", "safety", "prohibited_content", "blocklist"}},
	{ErrorTypeInvalidModel, "invalid or unavailable model", []string{"model not found", "invalid model", "unknown model", "model is not supported"}},
}

const maxBodyInMessage = 200

// ParseHTTPError classifies a failed HTTP response.
func ParseHTTPError(provider Provider, statusCode int, body string) *LLMError {
	typ, msg := ErrorTypeUnknown, fmt.Sprintf("HTTP %d error", statusCode)
	if st, ok := statusTypes[statusCode]; ok {
		typ, msg = st.typ, st.msg
	}
	if t, m, ok := matchBody(body); ok {
		typ, msg = t, m
	} else if body != "" {
		if len(body) > maxBodyInMessage {
			body = body[:maxBodyInMessage] + "..."
		}
		msg = msg + ": " + body
	}
	err := NewLLMError(provider, typ, msg)
	err.HTTPStatus = statusCode
	return err
}

func matchBody(body string) (ErrorType, string, bool) {
	lower := strings.ToLower(body)
	for _, p := range bodyPatterns {
		for _, s := range p.subs {
			if strings.Contains(lower, s) {
				return p.typ, p.msg, true
			}
		}
	}
	return "", "", false
}

// IsLLMError unwraps err to its LLMError, if any.
func IsLLMError(err error) (*LLMError, bool) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// ClassifyTransportError maps failures that carry no HTTP status: deadlines,
// cancellation and network errors. Providers fall back to it after their
// SDK-specific checks.
func ClassifyTransportError(provider Provider, err error) *LLMError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewLLMErrorWithCause(provider, ErrorTypeTimeout, "request timeout", err)
	case errors.Is(err, context.Canceled):
		return NewLLMErrorWithCause(provider, ErrorTypeUnknown, "context error", err)
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") {
		return NewLLMErrorWithCause(provider, ErrorTypeConnectionError, "connection error", err)
	}
	return NewLLMErrorWithCause(provider, ErrorTypeUnknown, err.Error(), err)
}

func isType(err error, t ErrorType) bool {
	llmErr, ok := IsLLMError(err)
	return ok && llmErr.Type == t
}

// IsRetryableError derives retryability from the type, so hand-built
// errors are classified the same as constructed ones.
func IsRetryableError(err error) bool {
	llmErr, ok := IsLLMError(err)
	return ok && llmErr.Type.Retryable()
}

func IsRateLimitError(err error) bool      { return isType(err, ErrorTypeRateLimit) }
func IsContextLengthError(err error) bool  { return isType(err, ErrorTypeContextLength) }
func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

// IsContentFilterError reports a provider-side safety refusal. The agent
// surfaces these like a screen block rather than as an outage.
func IsContentFilterError(err error) bool { return isType(err, ErrorTypeContentFilter) }
