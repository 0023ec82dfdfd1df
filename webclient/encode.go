package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/moods445/clientkit/codec"
)

// encodeRequest materializes the symbolic payload into the wire body the
// connector sends. Runs once, inside the terminal exchange, after all
// filters: filters observe and rewrite the payload symbolically, never the
// encoded bytes.
//
// Reader payloads pass through unbuffered. Everything else is encoded by
// the registry; single values into a buffer with an exact length, streams
// through a pipe with chunked transfer.
func encodeRequest(ctx context.Context, req *Request, reg *codec.Registry) (*Request, error) {
	if req.Payload == nil || req.Body != nil {
		return req, nil
	}

	wire := req.Clone()
	if wire.Header == nil {
		wire.Header = make(http.Header)
	}
	p := req.Payload

	if p.Stream != nil {
		if err := encodeStreamBody(ctx, wire, p, reg); err != nil {
			return nil, err
		}
		return wire, nil
	}

	if r, ok := p.Value.(io.Reader); ok {
		setReaderBody(wire, r)
		if !wire.ContentType.IsZero() {
			wire.Header.Set("Content-Type", wire.ContentType.String())
		}
		return wire, nil
	}

	enc, err := reg.EncoderFor(p.Type, req.ContentType)
	if err != nil {
		return nil, NewUnsupportedMediaError(fmt.Sprintf("no encoder for %s as %q", p.Type, req.ContentType), err)
	}

	// Resolve the content type once, before encoding: codecs that mint
	// per-message parameters (multipart boundaries) must see the same
	// value in the header and on the wire.
	ct := enc.ContentType(req.ContentType)

	var buf bytes.Buffer
	if err := enc.Encode(&buf, p.Value, ct); err != nil {
		return nil, NewEncodeError(err)
	}

	data := buf.Bytes()
	wire.Body = bytes.NewReader(data)
	wire.ContentLength = int64(len(data))
	wire.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	if !ct.IsZero() {
		wire.Header.Set("Content-Type", ct.String())
	}
	return wire, nil
}

// setReaderBody passes a caller-supplied reader through without buffering.
// Replayable readers keep their length and a rewind function so redirects
// and retries at the transport level still work.
func setReaderBody(wire *Request, r io.Reader) {
	wire.Body = r
	wire.ContentLength = -1

	switch v := r.(type) {
	case *bytes.Reader:
		wire.ContentLength = int64(v.Len())
		snapshot := *v
		wire.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *bytes.Buffer:
		wire.ContentLength = int64(v.Len())
		data := v.Bytes()
		wire.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	case *strings.Reader:
		wire.ContentLength = int64(v.Len())
		snapshot := *v
		wire.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	}
}

// encodeStreamBody wires an element stream through a pipe. The encoder
// goroutine pulls elements only as fast as the transport drains the pipe,
// so producer backpressure follows the connection.
func encodeStreamBody(ctx context.Context, wire *Request, p *BodyPayload, reg *codec.Registry) error {
	enc, err := reg.EncoderFor(p.Type, wire.ContentType)
	if err != nil {
		return NewUnsupportedMediaError(fmt.Sprintf("no encoder for stream of %s as %q", p.Type, wire.ContentType), err)
	}
	streamEnc, ok := enc.(codec.StreamEncoder)
	if !ok {
		return NewUnsupportedMediaError(fmt.Sprintf("encoder for %q cannot encode element streams", wire.ContentType), codec.ErrNoEncoder)
	}

	ct := streamEnc.ContentType(wire.ContentType)
	src := p.Stream

	pr, pw := io.Pipe()
	go func() {
		err := streamEnc.EncodeStream(ctx, pw, src, ct)
		if cerr := src.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			pw.CloseWithError(NewEncodeError(err))
			return
		}
		pw.Close()
	}()

	wire.Body = pr
	wire.ContentLength = -1
	wire.GetBody = nil
	if !ct.IsZero() {
		wire.Header.Set("Content-Type", ct.String())
	}
	return nil
}
