package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("datalib/internal/services")

// endSpan ends span, recording err. Recoverable failures are expected outcomes
// and do not flag the span as errored.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if !IsFailure(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
