package context

import (
	stdcontext "context"
	"strings"
)

type requestIDKey struct{}
type sessionIDKey struct{}
type customerIDKey struct{}

// WithRequestID stores the inbound request id.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, requestIDKey{})
}

// WithSession stores the session and customer the request acts for.
func WithSession(ctx stdcontext.Context, sessionID, customerID string) stdcontext.Context {
	ctx = stdcontext.WithValue(ctx, sessionIDKey{}, strings.TrimSpace(sessionID))
	return stdcontext.WithValue(ctx, customerIDKey{}, strings.TrimSpace(customerID))
}

func SessionIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, sessionIDKey{})
}

func CustomerIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, customerIDKey{})
}

func stringValue(ctx stdcontext.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
