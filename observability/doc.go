// Package observability provides OpenTelemetry tracing and metrics for
// instrumenting outbound HTTP clients and the operations built on them.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-service")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "my.operation")
//	defer span.End()
//
// Metrics:
//
//	mcfg := observability.DefaultMeterConfig("my-service")
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("my-service"))
//	metrics.RecordRequestEnd(ctx, "payments", "GET", "200", duration)
//
// Health:
//
//	health := observability.NewServiceHealth("my-service", "1.0.0")
//	health.AddComponent(observability.BreakerHealth("payments", breaker).CheckHealth(ctx))
package observability
