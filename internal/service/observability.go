package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UseCaseEvent describes one completed service call.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver reports each use case as a service_use_case record.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 6+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.DebugContext(ctx, "service_use_case", attrs...)
}

type metricsUseCaseObserver struct {
	duration *prometheus.HistogramVec
}

// NewMetricsUseCaseObserver records use-case latency on reg, labelled by
// use case and outcome.
func NewMetricsUseCaseObserver(reg prometheus.Registerer) UseCaseObserver {
	return &metricsUseCaseObserver{
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nutq_use_case_duration_seconds",
			Help:    "Latency of service use cases.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"use_case", "success"}),
	}
}

func (o *metricsUseCaseObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.duration.WithLabelValues(event.Name, strconv.FormatBool(event.Success)).Observe(event.Duration.Seconds())
}

type multiUseCaseObserver []UseCaseObserver

// MultiUseCaseObserver fans events out to every non-nil observer.
func MultiUseCaseObserver(observers ...UseCaseObserver) UseCaseObserver {
	var out multiUseCaseObserver
	for _, obs := range observers {
		if obs != nil {
			out = append(out, obs)
		}
	}
	if len(out) == 0 {
		return NoopUseCaseObserver{}
	}
	return out
}

func (m multiUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	for _, obs := range m {
		obs.ObserveUseCase(ctx, event)
	}
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	return MultiUseCaseObserver(observers...)
}
