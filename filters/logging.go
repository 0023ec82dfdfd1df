package filters

import (
	"context"
	"time"

	"github.com/moods445/clientkit/logger"
	"github.com/moods445/clientkit/webclient"
)

// AttrNoLog marks a request whose exchanges the Logging filter skips.
// Set it on noisy traffic such as polling loops:
//
//	rb.Attribute(filters.AttrNoLog, true)
const AttrNoLog = "filters.nolog"

// Logging returns a filter that logs one line per exchange with method,
// URL, status, and duration. Transport failures log at error level;
// response statuses log by severity: 5xx error, 4xx warn, everything else
// debug. A nil log resolves the "webclient" logger from the registry, so
// applications can redirect filter output with logger.Register.
func Logging(log *logger.Logger) webclient.Filter {
	if log == nil {
		log = logger.Get("webclient")
	}
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			if skip, _ := req.Attribute(AttrNoLog); skip == true {
				return next(ctx, req)
			}

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":      req.Method,
				"url":         req.URL.String(),
				"duration_ms": duration.Milliseconds(),
			}
			if id := req.Header.Get(RequestIDHeader); id != "" {
				fields["request_id"] = id
			}

			if err != nil {
				fields["error"] = err.Error()
				log.WithContext(ctx).Error("request failed", fields)
				return nil, err
			}

			fields["status"] = resp.StatusCode
			logByStatus(log.WithContext(ctx), resp.StatusCode, fields)
			return resp, nil
		}
	}
}

// logByStatus logs exchange fields at a level matching the status code.
func logByStatus(log *logger.Logger, status int, fields map[string]interface{}) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
