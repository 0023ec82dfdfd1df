package filters

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/moods445/clientkit/observability"
	"github.com/moods445/clientkit/webclient"
)

const tracerName = "github.com/moods445/clientkit/filters"

// Trace returns a filter that wraps each exchange in an OpenTelemetry
// client span and injects trace context into the outgoing headers. The
// span covers the exchange and the body: it ends when the response is
// released, so slow consumers show up in the trace.
func Trace() webclient.Filter {
	tracer := observability.Tracer(tracerName)
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			ctx, span := tracer.Start(ctx, observability.SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.url", req.URL.String()),
				),
			)

			r2 := req.Clone()
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(r2.Header))

			resp, err := next(ctx, r2)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
				return nil, err
			}

			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			if resp.StatusCode >= 400 {
				span.SetStatus(codes.Error, resp.Status)
			}
			resp.OnRelease(func() { span.End() })
			return resp, nil
		}
	}
}
