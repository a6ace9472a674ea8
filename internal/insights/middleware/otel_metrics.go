package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for Generate calls.
type OTelMetricsMiddleware struct {
	next insights.Service

	calls     metric.Int64Counter
	durations metric.Float64Histogram
	bytes     metric.Int64Histogram
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next insights.Service, meter metric.Meter) (insights.Service, error) {
	calls, err := meter.Int64Counter("insights.generate.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}
	durations, err := meter.Float64Histogram("insights.generate.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create duration histogram")
	}
	size, err := meter.Int64Histogram("insights.upload.bytes")
	if err != nil {
		return nil, ewrap.Wrap(err, "create size histogram")
	}
	return &OTelMetricsMiddleware{next: next, calls: calls, durations: durations, bytes: size}, nil
}

// Generate implements insights.Service with metrics.
func (mw *OTelMetricsMiddleware) Generate(ctx context.Context, up insights.Upload) (*analysis.Insights, error) {
	start := time.Now()
	in, err := mw.next.Generate(ctx, up)

	attrs := metric.WithAttributes(attribute.String("outcome", outcome(err)))
	mw.calls.Add(ctx, 1, attrs)
	mw.durations.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	mw.bytes.Record(ctx, int64(len(up.Data)), attrs)
	return in, err
}

func outcome(err error) string {
	var pe *analysis.ParseError
	var ce *analysis.ComputationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "parse_error"
	case errors.As(err, &ce):
		return "computation_error"
	default:
		return "error"
	}
}
