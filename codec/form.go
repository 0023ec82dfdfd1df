package codec

import (
	"io"
	"net/url"
	"reflect"

	"github.com/moods445/clientkit/stream"
)

var urlValuesType = typeOf[url.Values]()

// FormCodec handles application/x-www-form-urlencoded bodies carried as
// url.Values.
type FormCodec struct{}

func (c *FormCodec) CanEncode(t reflect.Type, mt MediaType) bool {
	if t != urlValuesType {
		return false
	}
	return mt.IsZero() || mt.Includes(ApplicationForm) || ApplicationForm.Includes(mt)
}

func (c *FormCodec) ContentType(mt MediaType) MediaType {
	return ApplicationForm
}

func (c *FormCodec) Encode(w io.Writer, v any, mt MediaType) error {
	_, err := io.WriteString(w, v.(url.Values).Encode())
	return err
}

func (c *FormCodec) CanDecode(t reflect.Type, mt MediaType) bool {
	return t == urlValuesType && ApplicationForm.EqualsTypeAndSubtype(mt)
}

func (c *FormCodec) Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(string(b))
}

// DecodeStream yields the parsed form as a single element.
func (c *FormCodec) DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any] {
	return singleValueSeq(func() (any, error) { return c.Decode(r, t, mt) })
}
