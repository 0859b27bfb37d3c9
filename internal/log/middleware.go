package log

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware puts logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware enriches the context logger with the request ID.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides the domain's canonical log lines.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) emit(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	l := sl.logger
	if c, ok := fields[FieldComponent].(string); ok && c != "" {
		l = l.WithComponent(c)
	}
	l.Log(ctx, level, msg, fields.ToSlice()...)
}

// LogHTTPEnd logs a finished request; 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, route string, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	fields[FieldRoute] = route
	sl.emit(ctx, level, "HTTP request completed", fields)
}

func (sl *StructuredLogger) LogRaceCreated(ctx context.Context, userID, raceID uuid.UUID, name string) {
	sl.emit(ctx, slog.LevelInfo, "Race archived", NewFields().
		WithRace(userID, raceID, name).
		WithOperation(OpCreate).
		WithComponent(ComponentTracker))
}

func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, raceID, expenseID, categoryID uuid.UUID, amount string, withReceipt bool) {
	fields := NewFields().
		WithExpense(raceID, expenseID, categoryID, amount).
		WithOperation(OpCreate).
		WithComponent(ComponentTracker)
	fields["with_receipt"] = withReceipt
	sl.emit(ctx, slog.LevelInfo, "Expense archived", fields)
}

// LogAmountIssue records an amount that was counted as zero.
func (sl *StructuredLogger) LogAmountIssue(ctx context.Context, raceID, expenseID uuid.UUID, raw string, err error) {
	fields := NewFields().WithError(err).WithComponent(ComponentTracker)
	fields[FieldRaceID] = raceID.String()
	fields[FieldExpenseID] = expenseID.String()
	fields[FieldRawAmount] = raw
	sl.emit(ctx, slog.LevelWarn, "Unparseable expense amount counted as zero", fields)
}

// LogOrphanedReceipt records an uploaded object that no expense references.
func (sl *StructuredLogger) LogOrphanedReceipt(ctx context.Context, bucket, path string, err error) {
	sl.emit(ctx, slog.LevelError, "Receipt left orphaned in object store", NewFields().
		WithObject(bucket, path).
		WithError(err).
		WithOperation(OpUpload).
		WithComponent(ComponentTracker))
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.emit(ctx, slog.LevelError, msg, fields.WithError(err).WithOperation(operation).WithComponent(component))
}
