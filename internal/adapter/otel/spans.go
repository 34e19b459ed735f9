package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "arbiter"

// StartCheckpointSpan starts a span covering a decision point from creation
// to completion.
func StartCheckpointSpan(ctx context.Context, decisionType, convID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "checkpoint",
		trace.WithAttributes(
			attribute.String("checkpoint.type", decisionType),
			attribute.String("checkpoint.conv_id", convID),
		),
	)
}

// StartResolutionSpan starts a span for an operator resolve or cancel action.
func StartResolutionSpan(ctx context.Context, checkpointID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "checkpoint."+action,
		trace.WithAttributes(
			attribute.String("checkpoint.id", checkpointID),
		),
	)
}
