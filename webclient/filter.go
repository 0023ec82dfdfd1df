package webclient

import "context"

// Exchange performs one request/response round trip. The terminal exchange
// encodes the body and calls the connector; filters wrap it.
type Exchange func(ctx context.Context, req *Request) (*Response, error)

// Filter transforms an Exchange by wrapping it. A filter may pass the
// request through, derive a modified one with Clone, short-circuit with its
// own response without calling next, or post-process the response on the
// way out. Filters must not mutate the request they receive.
type Filter func(next Exchange) Exchange

// Chain composes multiple filters into one. Filters are applied in order:
// the first filter is outermost (executes first on the way in, last on the
// way out).
//
// Chain(a, b, c)(exchange) is equivalent to a(b(c(exchange))).
func Chain(filters ...Filter) Filter {
	return func(next Exchange) Exchange {
		for i := len(filters) - 1; i >= 0; i-- {
			next = filters[i](next)
		}
		return next
	}
}
