package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogUseCaseObserver_WritesFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	obs := NewLogUseCaseObserver(logger)

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "add-item", Duration: time.Millisecond, Success: true})
	assert.Empty(t, buf.String(), "successes log at debug")

	obs.ObserveUseCase(context.Background(), UseCaseEvent{
		Name:   "delete-item",
		Err:    errors.New("item not found"),
		Fields: map[string]any{"item_id": "abc"},
	})
	out := buf.String()
	assert.Contains(t, out, "msg=service_use_case")
	assert.Contains(t, out, "use_case=delete-item")
	assert.Contains(t, out, "item_id=abc")
	assert.Contains(t, out, `error="item not found"`)
}

func TestLogUseCaseObserver_NilLoggerIsNoop(t *testing.T) {
	assert.Equal(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}

func TestMetricsUseCaseObserver_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewMetricsUseCaseObserver(reg)

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "add-scheme", Success: true, Duration: time.Millisecond})
	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "add-scheme", Success: false, Duration: time.Millisecond})

	count, err := promtest.GatherAndCount(reg, "nutq_use_case_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMultiUseCaseObserver_FansOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := MultiUseCaseObserver(a, nil, b)

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "restore-backup"})
	assert.Equal(t, "restore-backup", a.last().Name)
	assert.Equal(t, "restore-backup", b.last().Name)

	assert.Equal(t, NoopUseCaseObserver{}, MultiUseCaseObserver(nil))
}
