package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRecordID is the standardized structured logging key for telemetry record identifiers.
	FieldRecordID = "record_id"
	// FieldCorrelationID is the standardized structured logging key for flush pass identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldDepth is the standardized structured logging key for buffer depth.
	FieldDepth = "depth"
	// FieldPressure is the standardized structured logging key for backpressure levels.
	FieldPressure = "pressure"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
)

type correlationKey struct{}

// WithCorrelationID stores a correlation identifier on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationKey{}, strings.TrimSpace(id))
}

// CorrelationIDFromContext returns the correlation identifier stored on ctx.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
