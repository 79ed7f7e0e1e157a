package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xiaot623/gogo/voiceagent/internal/domain"
	"github.com/xiaot623/gogo/voiceagent/internal/telemetry"
)

type metrics struct {
	activeCalls   metric.Int64UpDownCounter
	calls         metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolDuration  metric.Float64Histogram
	agentFailures metric.Int64Counter
}

func newMetrics() *metrics {
	meter := telemetry.Meter("voiceagent/service")
	active, _ := meter.Int64UpDownCounter("voiceagent.calls.active",
		metric.WithDescription("Calls currently in progress"),
	)
	calls, _ := meter.Int64Counter("voiceagent.calls",
		metric.WithDescription("Calls received"),
	)
	toolCalls, _ := meter.Int64Counter("voiceagent.tool_calls",
		metric.WithDescription("Tool calls completed, by tool and status"),
	)
	toolDur, _ := meter.Float64Histogram("voiceagent.tool_call.duration",
		metric.WithDescription("Time to produce a tool result (ms)"),
		metric.WithUnit("ms"),
	)
	failures, _ := meter.Int64Counter("voiceagent.agent.failures",
		metric.WithDescription("Agent completions with a failure reason, by error code"),
	)
	return &metrics{
		activeCalls:   active,
		calls:         calls,
		toolCalls:     toolCalls,
		toolDuration:  toolDur,
		agentFailures: failures,
	}
}

func (m *metrics) sessionStarted(ctx context.Context) {
	m.calls.Add(ctx, 1)
	m.activeCalls.Add(ctx, 1)
}

func (m *metrics) sessionEnded(ctx context.Context) {
	m.activeCalls.Add(ctx, -1)
}

func (m *metrics) toolCompleted(ctx context.Context, tool string, status domain.ToolCallStatus, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", string(status)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func (m *metrics) agentFailed(ctx context.Context, code string) {
	if code == "" {
		code = "none"
	}
	m.agentFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error_code", code)))
}
