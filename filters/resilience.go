package filters

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/moods445/clientkit/resilience"
	"github.com/moods445/clientkit/webclient"
)

// AttrIdempotent overrides the method-based idempotency check the Retry
// filter applies. Set true to retry a POST, false to pin down a GET:
//
//	rb.Attribute(filters.AttrIdempotent, true)
const AttrIdempotent = "filters.idempotent"

// RetryableStatus reports whether a response status warrants a retry:
// 429 and any 5xx.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Retry returns a filter that retries failed exchanges with exponential
// backoff. Transport errors retry per cfg.RetryIf, defaulting to the
// webclient retryable classification; responses with a retryable status
// (429 or 5xx) are drained, released, and replayed the same way. When
// attempts run out the last response flows out unconsumed, so status
// handling downstream sees it as usual.
//
// Only idempotent requests retry (see AttrIdempotent), and only when the
// body can be produced again: single-value payloads re-encode on every
// attempt, while streams and readers are consumed by the first attempt
// and pass through without retrying.
func Retry(cfg resilience.RetryConfig) webclient.Filter {
	if cfg.RetryIf == nil {
		cfg.RetryIf = webclient.IsRetryable
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			if !isIdempotent(req) || !canReplay(req) {
				return next(ctx, req)
			}

			attempts := 0
			return resilience.Retry(ctx, cfg, func() (*webclient.Response, error) {
				attempts++
				resp, err := next(ctx, req)
				if err != nil {
					return nil, err
				}
				if attempts < maxAttempts && RetryableStatus(resp.StatusCode) {
					serr := webclient.NewStatusError(resp.StatusCode, resp.Header, nil)
					if cfg.RetryIf(serr) {
						_ = resp.Discard()
						return nil, serr
					}
				}
				return resp, nil
			})
		}
	}
}

// isIdempotent reports whether the request may be replayed. The
// AttrIdempotent attribute wins; otherwise the method decides.
func isIdempotent(req *webclient.Request) bool {
	if v, ok := req.Attribute(AttrIdempotent); ok {
		b, _ := v.(bool)
		return b
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace,
		http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// canReplay reports whether the encode stage can produce the body again
// for another attempt.
func canReplay(req *webclient.Request) bool {
	if req.Body != nil {
		return false
	}
	p := req.Payload
	if p == nil {
		return true
	}
	if p.Stream != nil {
		return false
	}
	_, oneShot := p.Value.(io.Reader)
	return !oneShot
}

// errStatusFailure feeds 5xx responses into breaker accounting; it never
// reaches callers.
var errStatusFailure = errors.New("filters: upstream status failure")

// CircuitBreaker returns a filter that routes exchanges through cb,
// failing fast with resilience.ErrCircuitOpen while the circuit is open.
// Transport errors and 5xx responses count as failures; the responses
// themselves still flow out for normal handling.
func CircuitBreaker(cb *resilience.CircuitBreaker) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			var resp *webclient.Response
			err := cb.Execute(func() error {
				r, exErr := next(ctx, req)
				if exErr != nil {
					return exErr
				}
				resp = r
				if r.StatusCode >= 500 {
					return errStatusFailure
				}
				return nil
			})
			if resp != nil {
				return resp, nil
			}
			return nil, err
		}
	}
}

// RateLimit returns a filter that paces exchanges through rl, blocking
// until a token frees up or ctx is done.
func RateLimit(rl *resilience.RateLimiter) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			if err := rl.Wait(ctx); err != nil {
				return nil, err
			}
			return next(ctx, req)
		}
	}
}

// Concurrency returns a filter that caps in-flight exchanges with bh. A
// slot is held from dispatch until the response is released, so slow body
// consumers count against the cap. Fails with resilience.ErrBulkheadFull
// or ErrBulkheadTimeout when no slot frees up in time.
func Concurrency(bh *resilience.Bulkhead) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			if err := bh.Acquire(ctx); err != nil {
				return nil, err
			}
			resp, err := next(ctx, req)
			if err != nil {
				bh.Release()
				return nil, err
			}
			resp.OnRelease(bh.Release)
			return resp, nil
		}
	}
}
