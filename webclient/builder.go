package webclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moods445/clientkit/codec"
)

// Builder assembles a Client. Every option is chainable; Build validates
// and snapshots the configuration, so a builder can keep being modified
// and rebuilt without affecting clients already produced.
type Builder struct {
	baseURL        string
	defaultHeader  http.Header
	defaultCookies []*http.Cookie
	defaultRequest func(*RequestBuilder)
	filters        []Filter
	registry       *codec.Registry
	codecFns       []func(*codec.Registry)
	connector      Connector
	timeout        time.Duration
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{defaultHeader: http.Header{}}
}

// BaseURL sets the base every relative request URI resolves against. Must
// be absolute when set.
func (b *Builder) BaseURL(raw string) *Builder {
	b.baseURL = raw
	return b
}

// DefaultHeader replaces the default values for a header. Applied to every
// request before its own header operations.
func (b *Builder) DefaultHeader(key string, values ...string) *Builder {
	b.defaultHeader.Del(key)
	for _, v := range values {
		b.defaultHeader.Add(key, v)
	}
	return b
}

// AddDefaultHeader appends default values for a header.
func (b *Builder) AddDefaultHeader(key string, values ...string) *Builder {
	for _, v := range values {
		b.defaultHeader.Add(key, v)
	}
	return b
}

// DefaultCookie adds a cookie sent with every request.
func (b *Builder) DefaultCookie(name, value string) *Builder {
	b.defaultCookies = append(b.defaultCookies, &http.Cookie{Name: name, Value: value})
	return b
}

// DefaultRequest registers a hook that seeds every request builder before
// per-request options apply.
func (b *Builder) DefaultRequest(fn func(*RequestBuilder)) *Builder {
	b.defaultRequest = fn
	return b
}

// Filter appends a filter. Filters run in registration order: the first
// registered is outermost.
func (b *Builder) Filter(f Filter) *Builder {
	if f != nil {
		b.filters = append(b.filters, f)
	}
	return b
}

// Filters appends several filters in order.
func (b *Builder) Filters(fs ...Filter) *Builder {
	for _, f := range fs {
		b.Filter(f)
	}
	return b
}

// Registry replaces the base codec registry. Without it, Build starts from
// the default codecs.
func (b *Builder) Registry(r *codec.Registry) *Builder {
	b.registry = r
	return b
}

// Codecs registers a customizer applied to a clone of the base registry at
// Build time. Customizers run in registration order.
func (b *Builder) Codecs(fn func(*codec.Registry)) *Builder {
	if fn != nil {
		b.codecFns = append(b.codecFns, fn)
	}
	return b
}

// Connector sets the transport. Without it, Build constructs the default
// net/http connector.
func (b *Builder) Connector(conn Connector) *Builder {
	b.connector = conn
	return b
}

// Timeout sets the default per-exchange timeout. Individual requests
// override it; zero means no timeout.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	cp := *b
	cp.defaultHeader = b.defaultHeader.Clone()
	if cp.defaultHeader == nil {
		cp.defaultHeader = http.Header{}
	}
	cp.defaultCookies = append([]*http.Cookie(nil), b.defaultCookies...)
	cp.filters = append([]Filter(nil), b.filters...)
	cp.codecFns = append(([]func(*codec.Registry))(nil), b.codecFns...)
	return &cp
}

// Build validates the configuration and returns a ready client. The
// builder stays usable afterwards; the client holds its own snapshot.
func (b *Builder) Build() (*Client, error) {
	var base *url.URL
	if b.baseURL != "" {
		u, err := url.Parse(b.baseURL)
		if err != nil {
			return nil, NewInvalidRequestError(fmt.Sprintf("invalid base URL %q: %v", b.baseURL, err))
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, NewInvalidRequestError(fmt.Sprintf("base URL %q must be absolute", b.baseURL))
		}
		base = u
	}

	baseReg := b.registry
	if baseReg == nil {
		baseReg = codec.Default()
	}
	reg := baseReg.Clone()
	for _, fn := range b.codecFns {
		fn(reg)
	}

	conn := b.connector
	if conn == nil {
		hc, err := NewHTTPConnector(HTTPConnectorConfig{})
		if err != nil {
			return nil, err
		}
		conn = hc
	}

	cfg := clientConfig{
		baseURL:        base,
		rawBaseURL:     b.baseURL,
		defaultHeader:  b.defaultHeader.Clone(),
		defaultCookies: append([]*http.Cookie(nil), b.defaultCookies...),
		defaultRequest: b.defaultRequest,
		filters:        append([]Filter(nil), b.filters...),
		registry:       reg,
		connector:      conn,
		timeout:        b.timeout,
	}
	if cfg.defaultHeader == nil {
		cfg.defaultHeader = http.Header{}
	}

	client := &Client{config: cfg}
	client.exchange = Chain(cfg.filters...)(client.terminal)
	return client, nil
}

// Mutate returns a builder seeded from this client's configuration.
// Building it yields an independent client; the original is never
// affected, and codec customizations apply to a fresh registry clone.
func (c *Client) Mutate() *Builder {
	b := &Builder{
		baseURL:        c.config.rawBaseURL,
		defaultHeader:  c.config.defaultHeader.Clone(),
		defaultCookies: append([]*http.Cookie(nil), c.config.defaultCookies...),
		defaultRequest: c.config.defaultRequest,
		filters:        append([]Filter(nil), c.config.filters...),
		registry:       c.config.registry,
		connector:      c.config.connector,
		timeout:        c.config.timeout,
	}
	if b.defaultHeader == nil {
		b.defaultHeader = http.Header{}
	}
	return b
}
