package common

import (
	"context"

	"github.com/google/uuid"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID    contextKey = "request_id"
	ContextKeyDocumentType contextKey = "document_type"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithDocumentType adds the document type being transformed to the context
func WithDocumentType(ctx context.Context, documentType string) context.Context {
	return context.WithValue(ctx, ContextKeyDocumentType, documentType)
}

// DocumentTypeFromContext extracts the document type from context
func DocumentTypeFromContext(ctx context.Context) string {
	if dt, ok := ctx.Value(ContextKeyDocumentType).(string); ok {
		return dt
	}
	return ""
}

// NewRequestID returns a fresh random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
