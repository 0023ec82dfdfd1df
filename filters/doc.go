// Package filters provides ready-made exchange filters for the webclient
// pipeline: header, cookie, and query injection, authentication, request
// correlation, structured logging, retry, circuit breaking, rate and
// concurrency limiting, and OpenTelemetry instrumentation.
//
// Filters register on the client builder and compose in order, the first
// registered being outermost:
//
//	client, err := webclient.NewBuilder().
//	    BaseURL("https://api.example.com").
//	    Filter(filters.Logging(log)).
//	    Filter(filters.Retry(resilience.DefaultRetryConfig())).
//	    Filter(filters.CircuitBreaker(cb)).
//	    Build()
//
// Order matters for the resilience filters: Retry outside CircuitBreaker
// sends every attempt through the breaker, so repeated failures trip it;
// RateLimit inside Retry paces the retries themselves.
package filters
