package codec

import (
	"io"
	"reflect"

	"github.com/moods445/clientkit/stream"
)

// BytesCodec passes raw payloads through untouched. It encodes []byte and
// io.Reader values and decodes any body into []byte.
type BytesCodec struct{}

func (c *BytesCodec) CanEncode(t reflect.Type, mt MediaType) bool {
	return t == byteSliceType || t.Implements(readerType)
}

func (c *BytesCodec) ContentType(mt MediaType) MediaType {
	if mt.IsZero() || mt.Type == "*" {
		return ApplicationOctetStream
	}
	return mt
}

func (c *BytesCodec) Encode(w io.Writer, v any, mt MediaType) error {
	switch b := v.(type) {
	case []byte:
		_, err := w.Write(b)
		return err
	case io.Reader:
		_, err := io.Copy(w, b)
		return err
	default:
		_, err := w.Write(reflect.ValueOf(v).Bytes())
		return err
	}
}

func (c *BytesCodec) CanDecode(t reflect.Type, mt MediaType) bool {
	return t == byteSliceType
}

func (c *BytesCodec) Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error) {
	return io.ReadAll(r)
}

// DecodeStream yields the whole body as one []byte element.
func (c *BytesCodec) DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any] {
	return singleValueSeq(func() (any, error) { return c.Decode(r, t, mt) })
}
