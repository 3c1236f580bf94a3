package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/tvuschedule/internal/errors"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldOperation is the field name for the timetable operation.
	LogFieldOperation = "operation"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldSemester is the field name for the semester ID.
	LogFieldSemester = "semester"
	// LogFieldWeek is the field name for the semester week number.
	LogFieldWeek = "week"
)

// RequestContext carries the request ID and start time of one query, sync or
// HTTP request, and logs with those fields attached.
type RequestContext struct {
	RequestID string
	Operation string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, operation string) *RequestContext {
	return NewRequestContextWithID(logger, generateRequestID(), operation)
}

// NewRequestContextWithID creates a request context with a specific request ID.
// An empty ID is replaced by a generated one.
func NewRequestContextWithID(logger *slog.Logger, requestID, operation string) *RequestContext {
	if requestID == "" {
		requestID = generateRequestID()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: requestID,
		Operation: operation,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a new logger with additional fields.
func (r *RequestContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	base := r.baseAttrsAppended(attrs...)
	result := make([]any, 0, len(base))
	for _, attr := range base {
		result = append(result, attr)
	}
	return r.Logger.With(result...)
}

// Info logs an info message.
func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.baseAttrsAppended(attrs...)...)
}

// Error logs an error with its error code. Upstream failures are logged at
// warn level since they are not our bugs.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	code := errors.GetCodeFromError(err, "")
	level := slog.LevelError
	if code.IsUpstream() || code == errors.ErrCodeInvalidArgument || code == errors.ErrCodeEmailIntent {
		level = slog.LevelWarn
	}
	all := append(attrs, slog.String("error", err.Error()), slog.String(LogFieldErrorCode, string(code)))
	r.Logger.LogAttrs(context.Background(), level, msg, r.baseAttrsAppended(all...)...)
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

func (r *RequestContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.String(LogFieldOperation, r.Operation),
	}
	return append(base, attrs...)
}

func generateRequestID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithRequestContext adds the request context to the context.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context from the context.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}

// LoggerFrom returns the request-scoped logger, or the default logger when
// ctx carries no request context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if reqCtx, ok := FromContext(ctx); ok {
		return reqCtx.WithFields()
	}
	return slog.Default()
}
