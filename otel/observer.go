// Package otel provides OpenTelemetry integration for the devtools
// registry: execution metrics and spans, plus exporter setup for the
// serve command.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/devtools/tool"
)

// ToolObserver records tool execution signals into OpenTelemetry.
type ToolObserver struct {
	tracer trace.Tracer

	executions metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	executions, err := meter.Int64Counter(
		"devtools.tool.executions",
		metric.WithDescription("Number of tool executions"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"devtools.tool.failures",
		metric.WithDescription("Number of failed tool executions"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"devtools.tool.latency",
		metric.WithDescription("Tool execution latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:     tracer,
		executions: executions,
		failures:   failures,
		latency:    latency,
	}, nil
}

// ObserveExecute records one execution result.
func (o *ToolObserver) ObserveExecute(observation tool.ExecuteObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", observation.ToolName),
		attribute.Bool("success", observation.Success),
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.executions.Add(ctx, 1, options)
	o.latency.Record(ctx, observation.Duration.Seconds(), options)
	if !observation.Success {
		o.failures.Add(ctx, 1, options)
	}

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "tool.execute", trace.WithAttributes(attrs...))
	if !observation.Success {
		span.SetStatus(codes.Error, observation.Err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Compile-time interface check.
var _ tool.Observer = (*ToolObserver)(nil)
