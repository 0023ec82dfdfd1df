package webclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/moods445/clientkit/codec"
	"github.com/moods445/clientkit/stream"
)

// RequestBuilder assembles one request. All setters return the builder for
// chaining; the first error sticks and surfaces when the request is built,
// before anything touches the network.
//
// A builder is not safe for concurrent use and is discarded after its
// terminal call.
type RequestBuilder struct {
	client *Client

	method    string
	uri       string
	uriVars   []any
	uriNamed  map[string]any
	targetURL *url.URL

	query     url.Values
	headerOps []headerOp
	cookies   []*http.Cookie
	attrs     map[string]any

	payload     *BodyPayload
	contentType codec.MediaType
	timeout     time.Duration

	err *Error
}

type headerOp struct {
	add  bool
	key  string
	vals []string
}

func newRequestBuilder(c *Client, method string) *RequestBuilder {
	rb := &RequestBuilder{
		client: c,
		method: method,
	}
	if c.config.defaultRequest != nil {
		c.config.defaultRequest(rb)
	}
	return rb
}

func (rb *RequestBuilder) fail(e *Error) *RequestBuilder {
	if rb.err == nil {
		rb.err = e
	}
	return rb
}

// URI sets the target from a template with positional variables. Each
// {name} placeholder consumes the next variable; a count mismatch fails
// the build.
func (rb *RequestBuilder) URI(template string, vars ...any) *RequestBuilder {
	rb.uri = template
	rb.uriVars = vars
	rb.uriNamed = nil
	rb.targetURL = nil
	return rb
}

// URIMap sets the target from a template with named variables. A
// placeholder without a map entry fails the build; unused entries are
// ignored.
func (rb *RequestBuilder) URIMap(template string, vars map[string]any) *RequestBuilder {
	rb.uri = template
	rb.uriVars = nil
	rb.uriNamed = vars
	if vars == nil {
		rb.uriNamed = map[string]any{}
	}
	rb.targetURL = nil
	return rb
}

// URL sets a fully built target, bypassing template expansion and base URL
// resolution.
func (rb *RequestBuilder) URL(u *url.URL) *RequestBuilder {
	if u == nil {
		return rb.fail(NewInvalidRequestError("nil URL"))
	}
	rb.targetURL = u
	rb.uri = ""
	rb.uriVars = nil
	rb.uriNamed = nil
	return rb
}

// Query appends a query parameter. Repeated keys accumulate.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.query == nil {
		rb.query = url.Values{}
	}
	rb.query.Add(key, value)
	return rb
}

// QueryMap appends one parameter per map entry.
func (rb *RequestBuilder) QueryMap(params map[string]string) *RequestBuilder {
	for k, v := range params {
		rb.Query(k, v)
	}
	return rb
}

// Header sets a header, replacing any default or previously set values for
// the key.
func (rb *RequestBuilder) Header(key string, values ...string) *RequestBuilder {
	rb.headerOps = append(rb.headerOps, headerOp{key: key, vals: values})
	return rb
}

// AddHeader appends header values, keeping existing ones for the key.
func (rb *RequestBuilder) AddHeader(key string, values ...string) *RequestBuilder {
	rb.headerOps = append(rb.headerOps, headerOp{add: true, key: key, vals: values})
	return rb
}

// Accept sets the Accept header.
func (rb *RequestBuilder) Accept(types ...codec.MediaType) *RequestBuilder {
	parts := make([]string, 0, len(types))
	for _, mt := range types {
		parts = append(parts, mt.String())
	}
	return rb.Header("Accept", strings.Join(parts, ", "))
}

// ContentType declares the body media type.
func (rb *RequestBuilder) ContentType(mt codec.MediaType) *RequestBuilder {
	rb.contentType = mt
	return rb
}

// IfNoneMatch sets the If-None-Match precondition.
func (rb *RequestBuilder) IfNoneMatch(etag string) *RequestBuilder {
	return rb.Header("If-None-Match", etag)
}

// IfModifiedSince sets the If-Modified-Since precondition.
func (rb *RequestBuilder) IfModifiedSince(t time.Time) *RequestBuilder {
	return rb.Header("If-Modified-Since", t.UTC().Format(http.TimeFormat))
}

// Cookie adds a request cookie.
func (rb *RequestBuilder) Cookie(name, value string) *RequestBuilder {
	rb.cookies = append(rb.cookies, &http.Cookie{Name: name, Value: value})
	return rb
}

// Attribute attaches request metadata visible to filters.
func (rb *RequestBuilder) Attribute(key string, value any) *RequestBuilder {
	if rb.attrs == nil {
		rb.attrs = make(map[string]any)
	}
	rb.attrs[key] = value
	return rb
}

// BodyValue sets a single-value body. The value's type drives encoder
// selection; []byte and io.Reader values pass through unencoded. A nil
// value clears the body.
func (rb *RequestBuilder) BodyValue(v any) *RequestBuilder {
	if v == nil {
		rb.payload = nil
		return rb
	}
	rb.payload = &BodyPayload{Value: v, Type: reflect.TypeOf(v)}
	return rb
}

// BodyBytes sets a pre-encoded byte body.
func (rb *RequestBuilder) BodyBytes(b []byte) *RequestBuilder {
	return rb.BodyValue(b)
}

// BodyReader sets a pre-encoded streaming body read from r.
func (rb *RequestBuilder) BodyReader(r io.Reader) *RequestBuilder {
	return rb.BodyValue(r)
}

// StreamBody sets a lazy sequence body. Elements are encoded and written
// one at a time when the exchange runs; the sequence is closed by the
// pipeline afterwards.
func StreamBody[T any](rb *RequestBuilder, src stream.Seq[T]) *RequestBuilder {
	rb.payload = &BodyPayload{Stream: stream.Erase(src), Type: typeOf[T]()}
	return rb
}

// Timeout bounds this exchange, body consumption included.
func (rb *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	rb.timeout = d
	return rb
}

// Build assembles the immutable request. It performs no I/O and no body
// encoding.
func (rb *RequestBuilder) Build() (*Request, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	if rb.client.buildErr != nil {
		return nil, rb.client.buildErr
	}

	target, err := rb.resolveTarget()
	if err != nil {
		return nil, err
	}

	if rb.payload != nil && methodForbidsBody(rb.method) {
		return nil, NewInvalidRequestError(rb.method + " request must not carry a body")
	}

	header := rb.buildHeader()
	contentType := rb.contentType
	if contentType.IsZero() {
		if ct := header.Get("Content-Type"); ct != "" {
			parsed, err := codec.ParseMediaType(ct)
			if err != nil {
				return nil, NewInvalidRequestError("malformed Content-Type header: " + ct)
			}
			contentType = parsed
		}
	}

	req := &Request{
		Method:        rb.method,
		URL:           target,
		Header:        header,
		Payload:       rb.payload,
		ContentType:   contentType,
		Timeout:       rb.timeout,
		ContentLength: -1,
	}
	if rb.timeout == 0 {
		req.Timeout = rb.client.config.timeout
	}
	if n := len(rb.client.config.defaultCookies) + len(rb.cookies); n > 0 {
		req.Cookies = make([]*http.Cookie, 0, n)
		req.Cookies = append(req.Cookies, rb.client.config.defaultCookies...)
		req.Cookies = append(req.Cookies, rb.cookies...)
	}
	if len(rb.attrs) > 0 {
		req.attrs = make(map[string]any, len(rb.attrs))
		for k, v := range rb.attrs {
			req.attrs[k] = v
		}
	}
	return req, nil
}

func (rb *RequestBuilder) resolveTarget() (*url.URL, error) {
	var target *url.URL
	switch {
	case rb.targetURL != nil:
		u := *rb.targetURL
		target = &u
	default:
		expanded, err := expandTemplate(rb.uri, rb.uriVars, rb.uriNamed)
		if err != nil {
			return nil, NewInvalidRequestError(err.Error())
		}
		target, err = resolveURL(rb.client.config.baseURL, expanded)
		if err != nil {
			return nil, NewInvalidRequestError(err.Error())
		}
	}

	if len(rb.query) > 0 {
		q := target.Query()
		for k, vs := range rb.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target, nil
}

func (rb *RequestBuilder) buildHeader() http.Header {
	header := rb.client.config.defaultHeader.Clone()
	if header == nil {
		header = http.Header{}
	}
	for _, op := range rb.headerOps {
		if op.add {
			for _, v := range op.vals {
				header.Add(op.key, v)
			}
			continue
		}
		header.Del(op.key)
		for _, v := range op.vals {
			header.Add(op.key, v)
		}
	}
	return header
}

// Retrieve switches to the eager flow: status mapping runs before any body
// decoding, and error statuses become typed errors.
func (rb *RequestBuilder) Retrieve() *ResponseSpec {
	return &ResponseSpec{rb: rb}
}

// Exchange runs the filter chain and connector and hands back the raw
// response. No status is mapped to an error; the caller owns inspection
// and release.
func (rb *RequestBuilder) Exchange(ctx context.Context) (*Response, error) {
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return rb.client.exchange(ctx, req)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
