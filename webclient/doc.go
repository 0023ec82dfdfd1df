// Package webclient implements a fluent HTTP client with a filter
// pipeline and pluggable codecs and transport.
//
// A Client is an immutable facade: verb methods open a request builder,
// the builder produces an immutable Request, and execution flows through a
// chain of filters into a Connector. Response bodies decode through a
// media-type driven codec registry, as single values or as lazy element
// streams.
//
// The package separates three layers:
//   - Request/Response pipeline: builders, filters, exchange composition
//   - Codecs: media-type negotiation and (de)serialization (package codec)
//   - Connector: the wire transport, defaulting to net/http
//
// # Laziness
//
// Building a request performs no I/O and no encoding. Filters see the body
// as a symbolic payload; the terminal exchange step encodes it just before
// dispatch. Element streams (package stream) encode and decode
// incrementally, pulled at the pace of the connection.
//
// # Resource rules
//
// Every response holds a connection until released. The consuming
// operations (Decode, Bytes, Discard, stream close, Retrieve error
// mapping) release exactly once; callers using Body or Exchange directly
// own the release. A body read to EOF hands the connection back to the
// pool, anything else closes it.
//
// # Usage
//
//	client := webclient.Create("https://api.example.com")
//
//	user, err := webclient.BodyAs[User](ctx, client.Get().
//	    URI("/users/{id}", id).
//	    Accept(codec.ApplicationJSON).
//	    Retrieve())
//
// Derive variants without touching the original:
//
//	authed, err := client.Mutate().
//	    DefaultHeader("Authorization", "Bearer "+token).
//	    Filter(filters.Logging(log)).
//	    Build()
package webclient
