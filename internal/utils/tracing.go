package utils

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider samples ratio of root traces and logs finished spans at debug level
func NewTracerProvider(ratio float64, logger *logrus.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(&logExporter{logger: logger}),
	)
}

type logExporter struct {
	logger *logrus.Logger
}

func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := logrus.Fields{
			"span":        s.Name(),
			"trace_id":    s.SpanContext().TraceID().String(),
			"duration_ms": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		}
		for _, kv := range s.Attributes() {
			fields[string(kv.Key)] = kv.Value.Emit()
		}
		if s.Status().Code == codes.Error {
			fields["error"] = s.Status().Description
		}
		e.logger.WithFields(fields).Debug("Span finished")
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error {
	return nil
}
