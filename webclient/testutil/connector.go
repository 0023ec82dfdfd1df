// Package testutil provides a scripted connector for exercising the
// webclient pipeline without a network.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/moods445/clientkit/webclient"
)

// Call records one request the connector received. Body holds the wire
// bytes the connector drained, nil when the request carried none.
type Call struct {
	Request *webclient.Request
	Body    []byte
}

// Release records one response release. Reuse reports whether the body had
// been fully consumed, the pipeline's signal that the connection could go
// back to a pool.
type Release struct {
	Call  int
	Reuse bool
}

type scripted struct {
	status int
	header http.Header
	body   []byte
	err    error
}

// Connector is a scripted webclient.Connector. Responses are served in
// FIFO order, or by a handler when one is set. Every request and every
// release is recorded for assertions. Safe for concurrent use.
type Connector struct {
	mu       sync.Mutex
	handler  func(ctx context.Context, req *webclient.Request) (int, http.Header, []byte, error)
	queue    []scripted
	calls    []Call
	releases []Release
}

var _ webclient.Connector = (*Connector)(nil)

// NewConnector returns an empty scripted connector. Executing against it
// without enqueued responses or a handler fails the exchange.
func NewConnector() *Connector {
	return &Connector{}
}

// Enqueue scripts one response.
func (c *Connector) Enqueue(status int, header http.Header, body []byte) *Connector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, scripted{status: status, header: header, body: body})
	return c
}

// EnqueueError scripts one transport failure.
func (c *Connector) EnqueueError(err error) *Connector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, scripted{err: err})
	return c
}

// Handle replaces the FIFO queue with a function deriving the response
// from the request.
func (c *Connector) Handle(fn func(ctx context.Context, req *webclient.Request) (int, http.Header, []byte, error)) *Connector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
	return c
}

// Execute drains the wire body the way a real transport would, records the
// call, and serves the next scripted response.
func (c *Connector) Execute(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	var wire []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		wire = data
	}

	c.mu.Lock()
	call := len(c.calls)
	c.calls = append(c.calls, Call{Request: req, Body: wire})
	var next scripted
	switch {
	case c.handler != nil:
		fn := c.handler
		c.mu.Unlock()
		status, header, body, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return c.respond(call, status, header, body), nil
	case len(c.queue) > 0:
		next = c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		return nil, fmt.Errorf("testutil: no scripted response for %s %s", req.Method, req.URL)
	}

	if next.err != nil {
		return nil, next.err
	}
	return c.respond(call, next.status, next.header, next.body), nil
}

func (c *Connector) respond(call, status int, header http.Header, body []byte) *webclient.Response {
	return webclient.NewResponse(webclient.ResponseConfig{
		StatusCode:    status,
		Header:        header,
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
		Release: func(reuse bool) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.releases = append(c.releases, Release{Call: call, Reuse: reuse})
			return nil
		},
	})
}

// --- assertions ---

// Calls returns the recorded requests in order.
func (c *Connector) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// LastCall returns the most recent request, or a zero Call when none.
func (c *Connector) LastCall() Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return Call{}
	}
	return c.calls[len(c.calls)-1]
}

// Releases returns the recorded releases in order.
func (c *Connector) Releases() []Release {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Release(nil), c.releases...)
}

// Pending reports how many scripted responses remain unserved.
func (c *Connector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
