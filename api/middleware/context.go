package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyRequestID  contextKey = "request_id"
	contextKeyCustomerID contextKey = "customer_id"
)

// RequestIDFromContext returns the request id installed by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// CustomerIDFromContext returns the authenticated customer id, or uuid.Nil
// when the request is unauthenticated.
func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(contextKeyCustomerID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithCustomerID installs the authenticated customer into the context.
// Exposed for handler tests that bypass the Auth middleware.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKeyCustomerID, customerID)
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
