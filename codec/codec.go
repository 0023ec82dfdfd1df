package codec

import (
	"context"
	"errors"
	"io"
	"reflect"

	"github.com/moods445/clientkit/stream"
)

// Lookup failures. The client maps these to its own error kinds; custom
// connectors may do the same.
var (
	ErrNoEncoder = errors.New("codec: no encoder for type and media type")
	ErrNoDecoder = errors.New("codec: no decoder for type and media type")
)

// Encoder serializes Go values of the types it claims via CanEncode.
//
// Callers resolve the concrete content type once with ContentType and pass
// the result to Encode, so encoders that embed state in the media type
// (multipart boundaries) see the same value both times.
type Encoder interface {
	// CanEncode reports whether values of type t can be written as mt.
	// A zero mt means the caller declared no content type; encoders claim
	// it when t is one of their native types.
	CanEncode(t reflect.Type, mt MediaType) bool
	// ContentType resolves mt to the concrete media type Encode will
	// produce. A zero mt resolves to the encoder's default.
	ContentType(mt MediaType) MediaType
	// Encode writes v to w as mt.
	Encode(w io.Writer, v any, mt MediaType) error
}

// StreamEncoder is an Encoder that can emit a lazy sequence element by
// element. Implementations must write each element as it is pulled; the
// first element's bytes reach w before the source finishes.
type StreamEncoder interface {
	Encoder
	// EncodeStream drains src into w. It does not close src.
	EncodeStream(ctx context.Context, w io.Writer, src stream.Seq[any], mt MediaType) error
}

// Decoder deserializes response bodies into Go values of the types it
// claims via CanDecode.
type Decoder interface {
	// CanDecode reports whether a body of media type mt can be decoded
	// into values of type t.
	CanDecode(t reflect.Type, mt MediaType) bool
	// Decode reads r to completion and returns a value assignable to t.
	Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error)
	// DecodeStream returns a lazy sequence of values assignable to t,
	// reading from r only as elements are pulled. It does not close r;
	// the returned sequence owns no resources beyond its read position.
	DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any]
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	byteSliceType = typeOf[[]byte]()
	readerType    = typeOf[io.Reader]()
	stringType    = typeOf[string]()
)
