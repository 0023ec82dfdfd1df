package filters

import (
	"context"

	"github.com/google/uuid"

	"github.com/moods445/clientkit/webclient"
)

// RequestIDHeader is the header carrying the request correlation ID.
const RequestIDHeader = "X-Request-Id"

// RequestID returns a filter that ensures every outgoing request carries
// an X-Request-Id header, generating a UUID when the request has none.
// Register it ahead of Logging so the ID lands in the log line.
func RequestID() webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next(ctx, req)
			}
			r2 := req.Clone()
			r2.Header.Set(RequestIDHeader, uuid.New().String())
			return next(ctx, r2)
		}
	}
}
