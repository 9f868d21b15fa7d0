package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	studioIDKey  contextKey = "studio_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithStudioID stores the studio id and returns an enriched logger
func WithStudioID(ctx context.Context, logger *zap.Logger, studioID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, studioIDKey, studioID)
	enriched := logger.With(zap.String("studio_id", studioID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetStudioID retrieves studio ID from context
func GetStudioID(ctx context.Context) string {
	if studioID, ok := ctx.Value(studioIDKey).(string); ok {
		return studioID
	}
	return ""
}

// GetTraceID extracts the trace ID from the context's span
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// L returns the context logger enriched with trace, request and studio ids.
//
//	logger.L(ctx).Info("order imported", zap.String("confirmation_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds trace, request and studio ids found in ctx to logger
func Enrich(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	var fields []zap.Field
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	// the logger stored by WithRequestID/WithStudioID already carries these
	if stored, ok := ctx.Value(loggerKey).(*zap.Logger); !ok || stored != logger {
		if id := GetRequestID(ctx); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if id := GetStudioID(ctx); id != "" {
			fields = append(fields, zap.String("studio_id", id))
		}
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
