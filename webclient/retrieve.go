package webclient

import (
	"context"
	"net/http"

	"github.com/moods445/clientkit/stream"
)

// StatusPredicate selects response status codes for custom mapping.
type StatusPredicate func(statusCode int) bool

// StatusHandler turns a matched response into an error. The handler may
// read the body (an error payload, say); returning nil accepts the
// response and decoding proceeds normally. On a non-nil return the
// pipeline releases whatever the handler left of the body.
type StatusHandler func(ctx context.Context, resp *Response) error

// Ready-made predicates for OnStatus.
func Status4xx(statusCode int) bool     { return statusCode >= 400 && statusCode < 500 }
func Status5xx(statusCode int) bool     { return statusCode >= 500 && statusCode < 600 }
func StatusIsError(statusCode int) bool { return statusCode >= 400 }

// StatusIs matches one exact status code.
func StatusIs(code int) StatusPredicate {
	return func(statusCode int) bool { return statusCode == code }
}

// ResponseSpec is the eager consumption flow: registered status mappings
// run in order before any decoding, first match wins, and an unmatched
// 4xx/5xx becomes a typed status error carrying the raw body. Terminal
// calls trigger the exchange; nothing happens before one runs.
type ResponseSpec struct {
	rb       *RequestBuilder
	mappings []statusMapping
}

type statusMapping struct {
	pred   StatusPredicate
	handle StatusHandler
}

// OnStatus registers a status mapping. Mappings are consulted in
// registration order and only the first match runs; the built-in 4xx/5xx
// mapping applies only when no registered predicate matched.
func (s *ResponseSpec) OnStatus(pred StatusPredicate, handle StatusHandler) *ResponseSpec {
	s.mappings = append(s.mappings, statusMapping{pred: pred, handle: handle})
	return s
}

// exchange runs the request and applies status mappings to the result.
func (s *ResponseSpec) exchange(ctx context.Context) (*Response, error) {
	resp, err := s.rb.Exchange(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.mapStatus(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ResponseSpec) mapStatus(ctx context.Context, resp *Response) error {
	for _, m := range s.mappings {
		if !m.pred(resp.StatusCode) {
			continue
		}
		if err := m.handle(ctx, resp); err != nil {
			resp.Release()
			return err
		}
		return nil
	}
	if resp.StatusCode >= 400 {
		body, _ := resp.Bytes()
		return NewStatusError(resp.StatusCode, resp.Header, body)
	}
	return nil
}

// Bytes runs the exchange and returns the raw body. The connection is
// released for reuse.
func (s *ResponseSpec) Bytes(ctx context.Context) ([]byte, error) {
	resp, err := s.exchange(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Bytes()
}

// ToBodiless runs the exchange, drains and releases the body, and returns
// status and headers only.
func (s *ResponseSpec) ToBodiless(ctx context.Context) (*Entity[struct{}], error) {
	resp, err := s.exchange(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Discard(); err != nil {
		return nil, err
	}
	return &Entity[struct{}]{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
	}, nil
}

// Entity pairs a decoded body with the response status and headers.
type Entity[T any] struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       T
}

// BodyAs runs the exchange and decodes the body into T. No-content
// responses yield the zero value.
func BodyAs[T any](ctx context.Context, s *ResponseSpec) (T, error) {
	var zero T
	resp, err := s.exchange(ctx)
	if err != nil {
		return zero, err
	}
	v, err := resp.decodeValue(typeOf[T]())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ToEntity runs the exchange and decodes the body into T alongside status
// and headers.
func ToEntity[T any](ctx context.Context, s *ResponseSpec) (*Entity[T], error) {
	resp, err := s.exchange(ctx)
	if err != nil {
		return nil, err
	}
	v, err := resp.decodeValue(typeOf[T]())
	if err != nil {
		return nil, err
	}
	return &Entity[T]{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       v.(T),
	}, nil
}

// BodyStream runs the exchange and decodes the body as a lazy sequence of
// T. Elements are read from the wire as they are pulled; closing the
// sequence releases the connection, reusable only when the stream was
// consumed to its end.
func BodyStream[T any](ctx context.Context, s *ResponseSpec) (stream.Seq[T], error) {
	resp, err := s.exchange(ctx)
	if err != nil {
		return nil, err
	}
	seq, err := resp.decodeStream(typeOf[T]())
	if err != nil {
		return nil, err
	}
	return stream.Typed[T](seq), nil
}
