package webclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"sync/atomic"

	"github.com/moods445/clientkit/codec"
	"github.com/moods445/clientkit/stream"
)

// ErrBodyConsumed reports a body operation after the response was already
// consumed or released.
var ErrBodyConsumed = errors.New("webclient: response body already consumed")

var fallbackRegistry = codec.Default()

// ResponseConfig carries everything a connector knows about a wire
// response. Release, when set, owns connection disposal: it receives
// reuse=true when the body was read to completion and the connection can
// go back to a pool, false when unread data remains and the connection
// must be discarded.
type ResponseConfig struct {
	StatusCode    int
	Status        string
	Header        http.Header
	ContentLength int64
	// Body is the wire body; nil for bodiless responses.
	Body io.ReadCloser
	// Release disposes the connection. When nil, disposal is closing
	// Body.
	Release func(reuse bool) error
}

// NewResponse wraps a wire-level response for the pipeline. Connectors call
// this; everything else receives responses from an exchange.
func NewResponse(cfg ResponseConfig) *Response {
	r := &Response{
		StatusCode:    cfg.StatusCode,
		Status:        cfg.Status,
		Header:        cfg.Header,
		ContentLength: cfg.ContentLength,
		releaseFn:     cfg.Release,
		registry:      fallbackRegistry,
	}
	if r.Status == "" && r.StatusCode > 0 {
		r.Status = http.StatusText(r.StatusCode)
	}
	if r.Header == nil {
		r.Header = http.Header{}
	}
	if cfg.Body != nil {
		r.body = &trackedReader{r: cfg.Body}
	}
	return r
}

// Response is the result of an exchange. Status, headers, and metadata are
// readable without touching the body; the body itself is a managed,
// single-use resource. Exactly one release happens per response, no matter
// how it is consumed: a fully read body releases the connection for reuse,
// an abandoned one closes it, and repeated releases are no-ops.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the status line text.
	Status string
	// Header holds the response headers.
	Header http.Header
	// ContentLength is the declared body length, -1 when unknown.
	ContentLength int64

	body         *trackedReader
	releaseFn    func(reuse bool) error
	registry     *codec.Registry
	released     atomic.Bool
	releaseHooks []func()
}

// trackedReader records whether the wire body was read to EOF, which is
// what decides pool-versus-close at release time.
type trackedReader struct {
	r      io.ReadCloser
	sawEOF atomic.Bool
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err == io.EOF {
		t.sawEOF.Store(true)
	}
	return n, err
}

func (t *trackedReader) Close() error {
	return t.r.Close()
}

// Cookies parses the Set-Cookie response headers.
func (r *Response) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.Header}).Cookies()
}

// ContentType returns the parsed response content type, or a zero media
// type when the header is absent.
func (r *Response) ContentType() (codec.MediaType, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return codec.MediaType{}, nil
	}
	return codec.ParseMediaType(ct)
}

// Released reports whether the connection was already released.
func (r *Response) Released() bool {
	return r.released.Load()
}

// Release disposes the connection exactly once: reusable when the body was
// fully consumed (or there was none), closed otherwise. Calling Release
// again is a no-op.
func (r *Response) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	reuse := r.body == nil || r.body.sawEOF.Load()
	var err error
	switch {
	case r.releaseFn != nil:
		err = r.releaseFn(reuse)
	case r.body != nil:
		err = r.body.Close()
	}
	for _, hook := range r.releaseHooks {
		hook()
	}
	return err
}

// OnRelease registers fn to run after the connection is disposed. Filters
// use this to defer work until the body is consumed, such as ending a span
// or freeing a concurrency slot. If the response was already released, fn
// runs immediately.
func (r *Response) OnRelease(fn func()) {
	if r.released.Load() {
		fn()
		return
	}
	r.releaseHooks = append(r.releaseHooks, fn)
}

func (r *Response) setRegistry(reg *codec.Registry) {
	if reg != nil {
		r.registry = reg
	}
}

// Body exposes the raw wire body. Closing the returned reader releases the
// connection: reusable if the body was read to EOF, closed otherwise. This
// is the exchange-style access path; Bytes, Decode, and Discard manage the
// release themselves.
func (r *Response) Body() io.ReadCloser {
	return &rawBody{resp: r}
}

type rawBody struct {
	resp *Response
}

func (b *rawBody) Read(p []byte) (int, error) {
	if b.resp.released.Load() {
		return 0, ErrBodyConsumed
	}
	if b.resp.body == nil {
		return 0, io.EOF
	}
	return b.resp.body.Read(p)
}

func (b *rawBody) Close() error {
	return b.resp.Release()
}

// Bytes reads the body to completion and releases the connection for
// reuse.
func (r *Response) Bytes() ([]byte, error) {
	if r.released.Load() {
		return nil, ErrBodyConsumed
	}
	if r.body == nil {
		r.Release()
		return nil, nil
	}
	b, err := io.ReadAll(r.body)
	if err != nil {
		r.Release()
		return nil, NewConnectorError(err)
	}
	r.Release()
	return b, nil
}

// Discard drains whatever remains of the body and releases the connection
// for reuse. Safe to call on an already released response.
func (r *Response) Discard() error {
	if r.released.Load() {
		return nil
	}
	if r.body != nil {
		if _, err := io.Copy(io.Discard, r.body); err != nil {
			r.Release()
			return NewConnectorError(err)
		}
	}
	return r.Release()
}

// Decode deserializes the body into v, which must be a non-nil pointer.
// The decoder is selected by target type and response content type; the
// connection is released afterwards in every outcome.
func (r *Response) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return NewInvalidRequestError("decode target must be a non-nil pointer")
	}
	out, err := r.decodeValue(rv.Elem().Type())
	if err != nil {
		return err
	}
	rv.Elem().Set(reflect.ValueOf(out))
	return nil
}

// decodeValue is the aggregate decode path shared by Decode and the typed
// retrieve terminals. A missing or empty body yields the zero value.
func (r *Response) decodeValue(t reflect.Type) (any, error) {
	if r.released.Load() {
		return nil, ErrBodyConsumed
	}
	if r.body == nil || r.StatusCode == http.StatusNoContent || r.StatusCode == http.StatusNotModified {
		r.Release()
		return reflect.Zero(t).Interface(), nil
	}

	mt, derr := r.decodeMediaType()
	if derr != nil {
		r.Release()
		return nil, derr
	}
	dec, err := r.registry.DecoderFor(t, mt)
	if err != nil {
		r.Release()
		return nil, NewUnsupportedMediaError("no decoder for "+t.String()+" from "+mt.String(), err)
	}

	v, err := dec.Decode(r.body, t, mt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Empty body decodes to the zero value.
			r.Release()
			return reflect.Zero(t).Interface(), nil
		}
		r.Release()
		return nil, NewDecodeError(err)
	}

	// Drain trailing bytes so the connection is reusable.
	io.Copy(io.Discard, r.body)
	r.Release()
	return v, nil
}

// decodeStream is the lazy decode path. The returned sequence reads from
// the wire per pull; closing it releases the connection, reusable only if
// the stream was consumed to its end.
func (r *Response) decodeStream(t reflect.Type) (stream.Seq[any], error) {
	if r.released.Load() {
		return nil, ErrBodyConsumed
	}
	if r.body == nil {
		r.Release()
		return stream.Empty[any](), nil
	}

	mt, derr := r.decodeMediaType()
	if derr != nil {
		r.Release()
		return nil, derr
	}
	dec, err := r.registry.DecoderFor(t, mt)
	if err != nil {
		r.Release()
		return nil, NewUnsupportedMediaError("no decoder for "+t.String()+" from "+mt.String(), err)
	}

	inner := dec.DecodeStream(r.body, t, mt)
	return stream.Func(func(ctx context.Context) (any, bool, error) {
		v, ok, err := inner.Next(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = NewDecodeError(err)
		}
		return v, ok, err
	}, func() error {
		inner.Close()
		return r.Release()
	}), nil
}

func (r *Response) decodeMediaType() (codec.MediaType, *Error) {
	mt, err := r.ContentType()
	if err != nil {
		return codec.MediaType{}, NewUnsupportedMediaError("malformed response content type", err)
	}
	if mt.IsZero() {
		return codec.ApplicationOctetStream, nil
	}
	return mt, nil
}
