package transport

import (
	"context"
	"log/slog"
)

// RequestEvent records metadata about a single request.
type RequestEvent struct {
	Method    string
	Path      string
	Status    int
	LatencyMs int64
	Err       error
}

// Observer receives request events for logging.
type Observer interface {
	OnRequestComplete(event RequestEvent)
}

// LogObserver writes request events through a slog logger.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnRequestComplete(event RequestEvent) {
	level := slog.LevelInfo
	status := "ok"
	if event.Err != nil {
		level = slog.LevelWarn
		status = "error"
	}
	attrs := []any{
		"method", event.Method,
		"path", event.Path,
		"status_code", event.Status,
		"latency_ms", event.LatencyMs,
		"status", status,
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
	}
	o.logger.Log(context.Background(), level, "sync_request", attrs...)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnRequestComplete(RequestEvent) {}
