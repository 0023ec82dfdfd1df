package webclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/moods445/clientkit/codec"
)

// clientConfig is the immutable snapshot behind a client. Builder.Build
// deep-copies everything into it; nothing mutates it afterwards, so a
// client is safe for concurrent use and cheap to share.
type clientConfig struct {
	baseURL        *url.URL
	rawBaseURL     string
	defaultHeader  http.Header
	defaultCookies []*http.Cookie
	defaultRequest func(*RequestBuilder)
	filters        []Filter
	registry       *codec.Registry
	connector      Connector
	timeout        time.Duration
}

// Client is the entry point for exchanges. Obtain one from Create or a
// Builder, start requests with the verb methods, and derive variants with
// Mutate. The zero value is not usable.
type Client struct {
	config clientConfig

	// exchange is the filter chain composed onto the terminal step,
	// built once so per-request dispatch is a single call.
	exchange Exchange

	// buildErr defers construction failures to the first exchange, so
	// Create stays chainable.
	buildErr *Error
}

// Create builds a client for the given base URL with default settings.
// Configuration errors surface on the first exchange; use NewBuilder for
// eager validation.
func Create(baseURL string) *Client {
	c, err := NewBuilder().BaseURL(baseURL).Build()
	if err != nil {
		return &Client{buildErr: asClientError(err)}
	}
	return c
}

// Get starts a GET request.
func (c *Client) Get() *RequestBuilder { return newRequestBuilder(c, http.MethodGet) }

// Head starts a HEAD request.
func (c *Client) Head() *RequestBuilder { return newRequestBuilder(c, http.MethodHead) }

// Post starts a POST request.
func (c *Client) Post() *RequestBuilder { return newRequestBuilder(c, http.MethodPost) }

// Put starts a PUT request.
func (c *Client) Put() *RequestBuilder { return newRequestBuilder(c, http.MethodPut) }

// Patch starts a PATCH request.
func (c *Client) Patch() *RequestBuilder { return newRequestBuilder(c, http.MethodPatch) }

// Delete starts a DELETE request.
func (c *Client) Delete() *RequestBuilder { return newRequestBuilder(c, http.MethodDelete) }

// Options starts an OPTIONS request.
func (c *Client) Options() *RequestBuilder { return newRequestBuilder(c, http.MethodOptions) }

// Method starts a request with an arbitrary method.
func (c *Client) Method(method string) *RequestBuilder {
	rb := newRequestBuilder(c, method)
	if method == "" {
		rb.fail(NewInvalidRequestError("method must not be empty"))
	}
	return rb
}

// Registry returns the codec registry the client decodes with.
func (c *Client) Registry() *codec.Registry { return c.config.registry }

// Execute runs a fully built request through the filter chain. Most
// callers go through the request builder; Execute is the hook for
// pre-built or filter-rewritten requests.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	if c.buildErr != nil {
		return nil, c.buildErr
	}
	if req == nil {
		return nil, NewInvalidRequestError("request must not be nil")
	}
	return c.exchange(ctx, req)
}

// terminal is the innermost exchange step: apply the request timeout,
// encode the payload, dispatch to the connector, and classify transport
// failures. Filters wrap this.
func (c *Client) terminal(ctx context.Context, req *Request) (*Response, error) {
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	fail := func(err error) (*Response, error) {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}

	wire, err := encodeRequest(ctx, req, c.config.registry)
	if err != nil {
		return fail(err)
	}

	resp, err := c.config.connector.Execute(ctx, wire)
	if err != nil {
		return fail(mapTransportError(err))
	}

	resp.setRegistry(c.config.registry)
	if cancel != nil {
		// The deadline must outlive the exchange: the body is still
		// streaming on this context until the response is released.
		resp.OnRelease(cancel)
	}
	return resp, nil
}

// mapTransportError classifies connector failures. Deadline expiry becomes
// a retryable timeout, explicit cancellation passes through untouched so
// retry layers leave it alone, and anything else is a connector error.
func mapTransportError(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectorError(err)
}

// asClientError coerces an arbitrary error into the typed form without
// double-wrapping.
func asClientError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return NewInvalidRequestError(err.Error())
}
