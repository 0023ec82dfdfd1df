package codec_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/moods445/clientkit/codec"
	"github.com/moods445/clientkit/stream"
)

type payload struct {
	Name string `json:"name"`
}

func encodeWith(t *testing.T, r *codec.Registry, v any, mt codec.MediaType) (string, codec.MediaType) {
	t.Helper()
	enc, err := r.EncoderFor(reflect.TypeOf(v), mt)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	resolved := enc.ContentType(mt)
	var buf bytes.Buffer
	if err := enc.Encode(&buf, v, resolved); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	return buf.String(), resolved
}

// --- Default registry selection ---

func TestDefault_StructEncodesAsJSON(t *testing.T) {
	out, mt := encodeWith(t, codec.Default(), payload{Name: "a"}, codec.MediaType{})
	if mt.String() != "application/json" {
		t.Fatalf("expected application/json, got %q", mt.String())
	}
	if strings.TrimSpace(out) != `{"name":"a"}` {
		t.Fatalf("expected JSON object, got %q", out)
	}
}

func TestDefault_StringEncodesAsText(t *testing.T) {
	out, mt := encodeWith(t, codec.Default(), "hello", codec.MediaType{})
	if mt.String() != "text/plain" {
		t.Fatalf("expected text/plain, got %q", mt.String())
	}
	if out != "hello" {
		t.Fatalf("expected hello, got %q", out)
	}
}

func TestDefault_BytesPassThrough(t *testing.T) {
	out, mt := encodeWith(t, codec.Default(), []byte{1, 2, 3}, codec.MediaType{})
	if mt.String() != "application/octet-stream" {
		t.Fatalf("expected application/octet-stream, got %q", mt.String())
	}
	if out != string([]byte{1, 2, 3}) {
		t.Fatalf("expected raw bytes, got %v", []byte(out))
	}
}

func TestDefault_ReaderPassThrough(t *testing.T) {
	out, _ := encodeWith(t, codec.Default(), strings.NewReader("raw"), codec.MediaType{})
	if out != "raw" {
		t.Fatalf("expected raw, got %q", out)
	}
}

func TestDefault_FormValues(t *testing.T) {
	form := url.Values{"a": {"1"}, "b": {"2 3"}}
	out, mt := encodeWith(t, codec.Default(), form, codec.MediaType{})
	if mt.String() != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form media type, got %q", mt.String())
	}
	got, err := url.ParseQuery(out)
	if err != nil {
		t.Fatalf("output is not a query string: %v", err)
	}
	if got.Get("a") != "1" || got.Get("b") != "2 3" {
		t.Fatalf("expected round-trippable form, got %q", out)
	}
}

func TestDefault_ExplicitJSONForString(t *testing.T) {
	// An explicit application/json content type bypasses the text codec.
	out, mt := encodeWith(t, codec.Default(), "hello", codec.ApplicationJSON)
	if mt.String() != "application/json" {
		t.Fatalf("expected application/json, got %q", mt.String())
	}
	if strings.TrimSpace(out) != `"hello"` {
		t.Fatalf("expected JSON string, got %q", out)
	}
}

func TestDefault_DecodeStringGetsRawBody(t *testing.T) {
	r := codec.Default()
	dec, err := r.DecoderFor(reflect.TypeOf(""), codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	v, err := dec.Decode(strings.NewReader(`{"name":"a"}`), reflect.TypeOf(""), codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if v.(string) != `{"name":"a"}` {
		t.Fatalf("expected verbatim body, got %q", v)
	}
}

func TestDefault_DecodeStructFromJSON(t *testing.T) {
	r := codec.Default()
	target := reflect.TypeOf(payload{})
	dec, err := r.DecoderFor(target, codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	v, err := dec.Decode(strings.NewReader(`{"name":"a"}`), target, codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if v.(payload).Name != "a" {
		t.Fatalf("expected name a, got %+v", v)
	}
}

// --- Lookup failures ---

func TestEncoderFor_NoMatch(t *testing.T) {
	r := codec.NewRegistry()
	_, err := r.EncoderFor(reflect.TypeOf(payload{}), codec.MediaType{})
	if !errors.Is(err, codec.ErrNoEncoder) {
		t.Fatalf("expected ErrNoEncoder, got %v", err)
	}
}

func TestDecoderFor_NoMatch(t *testing.T) {
	_, err := codec.Default().DecoderFor(reflect.TypeOf(payload{}), codec.MediaType{Type: "application", Subtype: "xml"})
	if !errors.Is(err, codec.ErrNoDecoder) {
		t.Fatalf("expected ErrNoDecoder, got %v", err)
	}
}

// --- Precedence ---

type constantDecoder struct{ value string }

func (d *constantDecoder) CanDecode(reflect.Type, codec.MediaType) bool { return true }
func (d *constantDecoder) Decode(io.Reader, reflect.Type, codec.MediaType) (any, error) {
	return d.value, nil
}
func (d *constantDecoder) DecodeStream(io.Reader, reflect.Type, codec.MediaType) stream.Seq[any] {
	return stream.FromSlice([]any{d.value})
}

func TestRegistry_FirstRegisteredWins(t *testing.T) {
	first := &constantDecoder{value: "first"}
	second := &constantDecoder{value: "second"}
	r := codec.NewRegistry().RegisterDecoder(first).RegisterDecoder(second)

	dec, err := r.DecoderFor(reflect.TypeOf(""), codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	v, _ := dec.Decode(strings.NewReader(""), reflect.TypeOf(""), codec.ApplicationJSON)
	if v != "first" {
		t.Fatalf("expected first registered decoder to win, got %v", v)
	}
}

func TestRegistry_CustomBeforeDefaults(t *testing.T) {
	custom := &constantDecoder{value: "custom"}
	r := codec.NewRegistry().RegisterDecoder(custom).RegisterDecoder(&codec.JSONCodec{})

	dec, err := r.DecoderFor(reflect.TypeOf(payload{}), codec.ApplicationJSON)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	v, _ := dec.Decode(strings.NewReader("{}"), reflect.TypeOf(payload{}), codec.ApplicationJSON)
	if v != "custom" {
		t.Fatalf("expected custom decoder to shadow JSON, got %v", v)
	}
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := codec.NewRegistry()
	clone := r.Clone()
	clone.RegisterDecoder(&constantDecoder{value: "cloned"})

	if _, err := r.DecoderFor(reflect.TypeOf(""), codec.ApplicationJSON); !errors.Is(err, codec.ErrNoDecoder) {
		t.Fatalf("expected original registry unchanged, got %v", err)
	}
	if _, err := clone.DecoderFor(reflect.TypeOf(""), codec.ApplicationJSON); err != nil {
		t.Fatalf("expected clone to find decoder, got %v", err)
	}
}

// --- Stream decode through the default registry ---

func TestDefault_DecodeStreamSingleValueCodecs(t *testing.T) {
	r := codec.Default()
	dec, err := r.DecoderFor(reflect.TypeOf([]byte(nil)), codec.ApplicationOctetStream)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	seq := dec.DecodeStream(strings.NewReader("abc"), reflect.TypeOf([]byte(nil)), codec.ApplicationOctetStream)
	got, err := stream.Collect(context.Background(), seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || string(got[0].([]byte)) != "abc" {
		t.Fatalf("expected single abc element, got %v", got)
	}
}
