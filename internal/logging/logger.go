package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards error records to an external error tracker.
type Reporter interface {
	MessageWithExtras(level string, msg string, extras map[string]interface{})
}

// ParseLevel maps a configured level name onto a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger. When reporter is non-nil, error records are
// also sent to it.
func New(w io.Writer, level string, reporter Reporter) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     ParseLevel(level),
	})
	if reporter != nil {
		handler = NewReportingHandler(handler, reporter)
	}
	return slog.New(handler)
}

// NewRollbarReporter configures a Rollbar client. It returns nil when no token is set.
func NewRollbarReporter(token, environment, codeVersion string) *rollbar.Client {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	host, _ := os.Hostname()
	return rollbar.New(token, environment, codeVersion, host, "")
}

// ReportingHandler wraps a slog.Handler and mirrors error records to a Reporter.
type ReportingHandler struct {
	next     slog.Handler
	reporter Reporter
	attrs    []slog.Attr
	group    string
}

// NewReportingHandler returns a handler that forwards error-level records.
func NewReportingHandler(next slog.Handler, reporter Reporter) *ReportingHandler {
	return &ReportingHandler{next: next, reporter: reporter}
}

func (h *ReportingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ReportingHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelError && h.reporter != nil {
		extras := make(map[string]interface{}, len(h.attrs)+record.NumAttrs())
		for _, attr := range h.attrs {
			extras[attr.Key] = attr.Value.Any()
		}
		record.Attrs(func(attr slog.Attr) bool {
			extras[h.key(attr.Key)] = attr.Value.Any()
			return true
		})
		h.reporter.MessageWithExtras(rollbar.ERR, record.Message, extras)
	}
	return h.next.Handle(ctx, record)
}

func (h *ReportingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.key(attr.Key)
		merged = append(merged, attr)
	}
	return &ReportingHandler{next: h.next.WithAttrs(attrs), reporter: h.reporter, attrs: merged, group: h.group}
}

func (h *ReportingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ReportingHandler{next: h.next.WithGroup(name), reporter: h.reporter, attrs: h.attrs, group: h.key(name)}
}

func (h *ReportingHandler) key(name string) string {
	if h.group == "" {
		return name
	}
	return h.group + "." + name
}
