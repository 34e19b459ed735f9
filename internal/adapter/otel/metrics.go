// Package otel provides OpenTelemetry instrumentation for Arbiter.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arbiter"

// Metrics holds all checkpoint metric instruments.
type Metrics struct {
	Created       metric.Int64Counter
	AutoCompleted metric.Int64Counter
	Resolved      metric.Int64Counter
	Cancelled     metric.Int64Counter
	WaitDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Created, err = meter.Int64Counter("arbiter.checkpoints.created",
		metric.WithDescription("Checkpoints registered for human review"))
	if err != nil {
		return nil, err
	}

	m.AutoCompleted, err = meter.Int64Counter("arbiter.checkpoints.auto_completed",
		metric.WithDescription("Decisions auto-completed without review"))
	if err != nil {
		return nil, err
	}

	m.Resolved, err = meter.Int64Counter("arbiter.checkpoints.resolved",
		metric.WithDescription("Checkpoints resolved by an operator"))
	if err != nil {
		return nil, err
	}

	m.Cancelled, err = meter.Int64Counter("arbiter.checkpoints.cancelled",
		metric.WithDescription("Checkpoints cancelled, falling back to the recommendation"))
	if err != nil {
		return nil, err
	}

	m.WaitDuration, err = meter.Float64Histogram("arbiter.checkpoints.wait_seconds",
		metric.WithDescription("Time a checkpoint spent waiting for a decision"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
