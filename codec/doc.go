// Package codec provides media-type driven encoding and decoding of HTTP
// message bodies.
//
// An Encoder serializes Go values to wire bytes; a Decoder does the reverse.
// Both are selected through a Registry by (Go type, media type) predicate:
// lookup walks the registered codecs in order and the first match wins, so
// registration order is the precedence knob.
//
// The built-in set (see Default) covers JSON values, newline-delimited JSON
// streams, plain text, raw bytes and readers, URL-encoded forms, multipart
// uploads, and server-sent event streams. Custom codecs implement Encoder or
// Decoder and register ahead of the defaults to override them.
//
// Streaming is part of the contract: every Decoder exposes DecodeStream, and
// encoders that can emit element by element implement StreamEncoder. Elements
// move one at a time, never buffering the full sequence.
package codec
