package observability

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in and out of the HTTP server.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

func GenerateRequestID() string { return uuid.NewString() }

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractHTTPContext adopts the caller's request id or mints a new one.
func ExtractHTTPContext(ctx context.Context, r *http.Request) context.Context {
	id := r.Header.Get(HeaderRequestID)
	if id == "" {
		id = GenerateRequestID()
	}
	return WithRequestID(ctx, id)
}

// InjectHTTPHeaders echoes the request id on the response.
func InjectHTTPHeaders(w http.ResponseWriter, ctx context.Context) {
	if id, ok := RequestIDFromContext(ctx); ok {
		w.Header().Set(HeaderRequestID, id)
	}
}
