// Package logger configures slog for the sync pipeline and enriches
// every record with trace identifiers and the context-carried sync
// fields.
package logger

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"pulseboard.app/signals/core/config"
)

// Setup installs the process-wide default logger. Production with a
// collector ships records over OTLP; otherwise JSON in production and
// text in development, both wrapped for trace enrichment.
func Setup(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch {
	case cfg.IsProduction() && cfg.OTel.Enabled():
		handler = otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
	case cfg.IsProduction():
		handler = NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts))
	default:
		handler = NewTraceHandler(slog.NewTextHandler(os.Stdout, opts))
	}

	slog.SetDefault(slog.New(handler))
}

// TraceHandler decorates records with the active span's trace and span
// IDs plus any LogFields stored on the context.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	r.AddAttrs(contextAttrs(ctx)...)

	return h.Handler.Handle(ctx, r)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	fields := GetLogFields(ctx)

	var attrs []slog.Attr
	if fields.UserID != nil {
		attrs = append(attrs, slog.String("user_id", *fields.UserID))
	}
	if fields.Source != nil {
		attrs = append(attrs, slog.String("source", *fields.Source))
	}
	if fields.ConversationID != nil {
		attrs = append(attrs, slog.String("conversation_id", *fields.ConversationID))
	}
	if fields.SyncRunID != nil {
		attrs = append(attrs, slog.Int64("sync_run_id", *fields.SyncRunID))
	}
	if fields.Component != "" {
		attrs = append(attrs, slog.String("component", fields.Component))
	}
	return attrs
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
