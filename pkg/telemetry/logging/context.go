package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// ActorKey is the context key for the user or job performing an operation.
	ActorKey contextKey = "actor"

	// RunIDKey is the context key for a deletion or scan run identifier.
	RunIDKey contextKey = "run_id"

	// OperationKey is the context key for the operation name.
	OperationKey contextKey = "operation"
)

// WithActor adds an actor to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the actor from the context.
func GetActor(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey).(string); ok {
		return v
	}
	return ""
}

// WithRunID adds a run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run identifier from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	if v, ok := ctx.Value(OperationKey).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the context values as log attributes.
func extractContextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if actor := GetActor(ctx); actor != "" {
		attrs = append(attrs, slog.String(string(ActorKey), actor))
	}
	if runID := GetRunID(ctx); runID != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), runID))
	}
	if op := GetOperation(ctx); op != "" {
		attrs = append(attrs, slog.String(string(OperationKey), op))
	}

	return attrs
}

// contextHandler adds context fields to each record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if attrs := extractContextFields(ctx); len(attrs) > 0 {
			r.AddAttrs(attrs...)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
