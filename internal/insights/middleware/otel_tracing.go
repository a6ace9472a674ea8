package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
)

// Span attribute keys.
const (
	AttrUploadName   = "upload.name"
	AttrUploadBytes  = "upload.bytes"
	AttrUploadDigest = "upload.digest"
	AttrNumericCols  = "insights.numeric_columns"
	AttrAnomalyRows  = "insights.anomaly_rows"
)

// OTelTracingMiddleware wraps Generate with an OpenTelemetry span.
type OTelTracingMiddleware struct {
	next   insights.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next insights.Service, tracer trace.Tracer, opts ...OTelTracingOption) insights.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}
	return mw
}

// Tracing adapts NewOTelTracingMiddleware to insights.Middleware.
func Tracing(tracer trace.Tracer, opts ...OTelTracingOption) insights.Middleware {
	return func(next insights.Service) insights.Service { return NewOTelTracingMiddleware(next, tracer, opts...) }
}

// Generate implements insights.Service with tracing.
func (mw OTelTracingMiddleware) Generate(ctx context.Context, up insights.Upload) (*analysis.Insights, error) {
	ctx, span := mw.tracer.Start(ctx, "insights.Generate", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}
	span.SetAttributes(
		attribute.String(AttrUploadName, up.Name),
		attribute.Int(AttrUploadBytes, len(up.Data)),
		attribute.String(AttrUploadDigest, up.Digest()),
	)

	in, err := mw.next.Generate(ctx, up)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int(AttrNumericCols, in.Trends.Len()),
		attribute.Int(AttrAnomalyRows, anomalyRows(in)),
	)
	return in, nil
}

func anomalyRows(in *analysis.Insights) int {
	n := 0
	for _, k := range in.Anomalies.Keys() {
		rows, _ := in.Anomalies.Get(k)
		n += len(rows)
	}
	return n
}
