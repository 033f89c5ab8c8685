// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/go-a2a/a2a-bridge/bridge"

// Task outcomes recorded on the bridge.tasks counter.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
)

type telemetry struct {
	tracer          trace.Tracer
	tasks           metric.Int64Counter
	executeDuration metric.Float64Histogram
	tokenRefreshes  metric.Int64Counter
	sessionsCreated metric.Int64Counter
}

func newTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) *telemetry {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	m := mp.Meter(instrumentationName)
	t := &telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.tasks, err = m.Int64Counter("bridge.tasks",
		metric.WithDescription("Count of executed tasks by outcome"),
	)
	if err != nil {
		otel.Handle(err)
		t.tasks = noop.Int64Counter{}
	}

	t.executeDuration, err = m.Float64Histogram("bridge.execute.duration",
		metric.WithDescription("Duration of task execution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		t.executeDuration = noop.Float64Histogram{}
	}

	t.tokenRefreshes, err = m.Int64Counter("bridge.token.refreshes",
		metric.WithDescription("Count of credential fetches"),
	)
	if err != nil {
		otel.Handle(err)
		t.tokenRefreshes = noop.Int64Counter{}
	}

	t.sessionsCreated, err = m.Int64Counter("bridge.sessions.created",
		metric.WithDescription("Count of backend sessions created"),
	)
	if err != nil {
		otel.Handle(err)
		t.sessionsCreated = noop.Int64Counter{}
	}
	return t
}

func (t *telemetry) recordTask(ctx context.Context, outcome string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	t.tasks.Add(ctx, 1, attrs)
	t.executeDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (t *telemetry) recordTokenRefresh(ctx context.Context, err error) {
	t.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", err == nil)))
}

func (t *telemetry) recordSessionCreated(ctx context.Context) {
	t.sessionsCreated.Add(ctx, 1)
}
