package codec

import (
	"context"
	"io"
	"reflect"

	"github.com/moods445/clientkit/stream"
)

// TextCodec handles string bodies. It encodes strings as text/plain and
// decodes any body into a string verbatim, which is how "give me the raw
// body as text" requests are served regardless of the response content type.
type TextCodec struct{}

func (c *TextCodec) CanEncode(t reflect.Type, mt MediaType) bool {
	if t != stringType {
		return false
	}
	return mt.IsZero() || mt.Type == "text" || mt.Type == "*"
}

func (c *TextCodec) ContentType(mt MediaType) MediaType {
	if mt.IsZero() || mt.Type == "*" {
		return TextPlain
	}
	return mt
}

func (c *TextCodec) Encode(w io.Writer, v any, mt MediaType) error {
	_, err := io.WriteString(w, v.(string))
	return err
}

func (c *TextCodec) CanDecode(t reflect.Type, mt MediaType) bool {
	return t == stringType
}

func (c *TextCodec) Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// DecodeStream yields the whole body as a single value; plain text has no
// element framing.
func (c *TextCodec) DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any] {
	return singleValueSeq(func() (any, error) { return c.Decode(r, t, mt) })
}

// singleValueSeq adapts a one-shot decode into a sequence of exactly one
// element.
func singleValueSeq(decode func() (any, error)) stream.Seq[any] {
	done := false
	return stream.Func(func(ctx context.Context) (any, bool, error) {
		if done {
			return nil, false, nil
		}
		done = true
		v, err := decode()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}, nil)
}
