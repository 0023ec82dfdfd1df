package filters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/moods445/clientkit/observability"
	"github.com/moods445/clientkit/webclient"
)

// Metrics returns a filter that records exchange count, duration, and an
// in-flight gauge through m. The service label tells clients sharing one
// meter apart.
func Metrics(m *observability.Metrics, service string) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			start := time.Now()
			m.RecordRequestStart(ctx)

			resp, err := next(ctx, req)
			if err != nil {
				m.RecordRequestEnd(ctx, service, req.Method, "error", time.Since(start))
				m.RecordError(ctx, errType(err), "webclient")
				return nil, err
			}

			m.RecordRequestEnd(ctx, service, req.Method, strconv.Itoa(resp.StatusCode), time.Since(start))
			return resp, nil
		}
	}
}

// errType maps an exchange error to a metric label.
func errType(err error) string {
	var ce *webclient.Error
	if errors.As(err, &ce) {
		return ce.Code.String()
	}
	return "other"
}
