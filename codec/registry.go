package codec

import "reflect"

// Registry holds ordered encoder and decoder lists. Lookup walks each list
// in registration order and returns the first codec whose predicate matches,
// so earlier registrations take precedence.
//
// A Registry is not safe for concurrent mutation; configure it fully before
// sharing. Client builders clone the registry at build time, after which it
// is only read.
type Registry struct {
	encoders []Encoder
	decoders []Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with the built-in codecs registered: raw
// bytes/readers, plain text, URL-encoded forms, multipart form data,
// server-sent events, and JSON last as the general fallback.
func Default() *Registry {
	r := NewRegistry()
	bytes := &BytesCodec{}
	text := &TextCodec{}
	form := &FormCodec{}
	r.RegisterEncoder(bytes)
	r.RegisterEncoder(text)
	r.RegisterEncoder(form)
	r.RegisterEncoder(&MultipartEncoder{})
	r.RegisterEncoder(&JSONCodec{})
	r.RegisterDecoder(bytes)
	r.RegisterDecoder(text)
	r.RegisterDecoder(form)
	r.RegisterDecoder(&SSEDecoder{})
	r.RegisterDecoder(&JSONCodec{})
	return r
}

// RegisterEncoder appends e to the encoder list.
func (r *Registry) RegisterEncoder(e Encoder) *Registry {
	r.encoders = append(r.encoders, e)
	return r
}

// RegisterDecoder appends d to the decoder list.
func (r *Registry) RegisterDecoder(d Decoder) *Registry {
	r.decoders = append(r.decoders, d)
	return r
}

// EncoderFor returns the first registered encoder claiming (t, mt), or
// ErrNoEncoder.
func (r *Registry) EncoderFor(t reflect.Type, mt MediaType) (Encoder, error) {
	for _, e := range r.encoders {
		if e.CanEncode(t, mt) {
			return e, nil
		}
	}
	return nil, ErrNoEncoder
}

// DecoderFor returns the first registered decoder claiming (t, mt), or
// ErrNoDecoder.
func (r *Registry) DecoderFor(t reflect.Type, mt MediaType) (Decoder, error) {
	for _, d := range r.decoders {
		if d.CanDecode(t, mt) {
			return d, nil
		}
	}
	return nil, ErrNoDecoder
}

// Clone returns a registry with independent codec lists. The codecs
// themselves are shared; they are stateless.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		encoders: make([]Encoder, len(r.encoders)),
		decoders: make([]Decoder, len(r.decoders)),
	}
	copy(c.encoders, r.encoders)
	copy(c.decoders, r.decoders)
	return c
}
