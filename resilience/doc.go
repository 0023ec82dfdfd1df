// Package resilience provides patterns for building fault-tolerant clients.
//
// This package includes:
//   - CircuitBreaker: Prevents cascading failures by failing fast
//   - Retry: Retries failed operations with exponential backoff
//   - Bulkhead: Limits concurrent access to isolate failures
//   - RateLimiter: Controls request rate with token bucket algorithm
//
// The filters package wraps these into exchange filters for the HTTP
// pipeline; use this package directly for anything else that needs them:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("upstream"))
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 10})
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	err := cb.Execute(func() error {
//	    return bh.Execute(ctx, func() error {
//	        return rl.ExecuteWait(ctx, func() error {
//	            return refreshCache(ctx)
//	        })
//	    })
//	})
package resilience
