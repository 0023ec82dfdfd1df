package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/moods445/clientkit/stream"
)

// JSONCodec encodes and decodes JSON bodies, including +json structured
// syntaxes and newline-delimited JSON streams (application/x-ndjson,
// application/stream+json).
//
// It claims any Go type when no content type was declared, so the default
// registry places it last: values not taken by a more specific codec are
// serialized as JSON, mirroring the common client default.
type JSONCodec struct{}

func (c *JSONCodec) CanEncode(t reflect.Type, mt MediaType) bool {
	if mt.IsZero() {
		return true
	}
	return isJSONFamily(mt) || isJSONStream(mt) || mt.Includes(ApplicationJSON)
}

func (c *JSONCodec) ContentType(mt MediaType) MediaType {
	if mt.IsZero() || mt.Type == "*" {
		return ApplicationJSON
	}
	return mt
}

func (c *JSONCodec) Encode(w io.Writer, v any, mt MediaType) error {
	return json.NewEncoder(w).Encode(v)
}

// EncodeStream writes src element by element. Stream media types get one
// JSON document per line; application/json gets an incrementally written
// array. Either way the first element is on the wire before the source is
// exhausted.
func (c *JSONCodec) EncodeStream(ctx context.Context, w io.Writer, src stream.Seq[any], mt MediaType) error {
	if isJSONStream(c.ContentType(mt)) {
		return c.encodeLines(ctx, w, src)
	}
	return c.encodeArray(ctx, w, src)
}

func (c *JSONCodec) encodeLines(ctx context.Context, w io.Writer, src stream.Seq[any]) error {
	enc := json.NewEncoder(w)
	for {
		v, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}

func (c *JSONCodec) encodeArray(ctx context.Context, w io.Writer, src stream.Seq[any]) error {
	if _, err := w.Write([]byte{'['}); err != nil {
		return err
	}
	first := true
	for {
		v, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			if _, err := w.Write([]byte{','}); err != nil {
				return err
			}
		}
		first = false
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{']'})
	return err
}

func (c *JSONCodec) CanDecode(t reflect.Type, mt MediaType) bool {
	return isJSONFamily(mt) || isJSONStream(mt)
}

func (c *JSONCodec) Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error) {
	ptr := reflect.New(t)
	if err := json.NewDecoder(r).Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// DecodeStream reads a top-level JSON array element by element, or one
// document per line for stream media types.
func (c *JSONCodec) DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any] {
	dec := json.NewDecoder(r)
	if isJSONStream(mt) {
		return stream.Func(func(ctx context.Context) (any, bool, error) {
			ptr := reflect.New(t)
			if err := dec.Decode(ptr.Interface()); err != nil {
				if err == io.EOF {
					return nil, false, nil
				}
				return nil, false, err
			}
			return ptr.Elem().Interface(), true, nil
		}, nil)
	}

	started := false
	return stream.Func(func(ctx context.Context) (any, bool, error) {
		if !started {
			tok, err := dec.Token()
			if err != nil {
				if err == io.EOF {
					// Empty body decodes as an empty stream.
					return nil, false, nil
				}
				return nil, false, err
			}
			if d, ok := tok.(json.Delim); !ok || d != '[' {
				return nil, false, fmt.Errorf("expected JSON array, got %v", tok)
			}
			started = true
		}
		if !dec.More() {
			// Consume the closing bracket so the body reads to EOF.
			if _, err := dec.Token(); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		}
		ptr := reflect.New(t)
		if err := dec.Decode(ptr.Interface()); err != nil {
			return nil, false, err
		}
		return ptr.Elem().Interface(), true, nil
	}, nil)
}
