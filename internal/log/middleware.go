package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l. Request-scoped fields such as
// the request id and the authenticated user are attached this way.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by NewContext, or Default.
func FromContext(ctx context.Context) *Logger {
	return FromContextOr(ctx, Default())
}

// StructuredLogger emits the fixed-shape records shared by the HTTP layer and
// the ledger service.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart is debug level; the completion record carries everything an
// operator normally needs.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	FromContextOr(ctx, sl.logger).WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd picks the level from the status: warn for 4xx, error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, durationMs, status < 400).
		WithClientIP(clientIP)
	FromContextOr(ctx, sl.logger).WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogLedgerWrite records one committed expense, income or goal contribution.
// Inside a request the context logger already carries the user.
func (sl *StructuredLogger) LogLedgerWrite(ctx context.Context, userID, kind, entityID, entryID string, amountCents int64) {
	fields := NewFields().
		WithLedgerEntry(kind, entityID, entryID, amountCents).
		WithOperation(OpRecord)
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	if !ok {
		l = sl.logger
		fields.WithUser(userID)
	}
	l.WithComponent(sl.logger.Component()).InfoContext(ctx, "Ledger entry recorded", fields.ToSlice()...)
}

// FromContextOr is FromContext with an explicit fallback.
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return fallback
}
