package webclient

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/moods445/clientkit/codec"
	"github.com/moods445/clientkit/stream"
)

// Request is a fully built client request. Requests are immutable by
// contract: once built they are never modified, and filters that need a
// variant derive one with Clone. The zero value is not usable; requests
// come from a RequestBuilder.
type Request struct {
	// Method is the HTTP method.
	Method string
	// URL is the resolved target, base URL and URI template already
	// applied.
	URL *url.URL
	// Header holds the request headers. Value order within a key is
	// preserved.
	Header http.Header
	// Cookies are sent in addition to any Cookie header entries.
	Cookies []*http.Cookie
	// Payload is the symbolic body, nil for bodiless requests. It is
	// encoded by the pipeline when the exchange runs, never at build
	// time.
	Payload *BodyPayload
	// ContentType is the declared body media type. Zero lets the
	// selected codec pick its default.
	ContentType codec.MediaType
	// Timeout bounds the exchange including body consumption. Zero
	// means no per-request deadline.
	Timeout time.Duration

	// Body is the encoded wire body, nil until the encode stage ran
	// (filters observe nil) or when the request has no body.
	Body io.Reader
	// GetBody returns a fresh copy of the wire body for replays.
	// Nil when the body is one-shot.
	GetBody func() (io.ReadCloser, error)
	// ContentLength is the wire body length, -1 when unknown.
	ContentLength int64

	attrs map[string]any
}

// BodyPayload is the symbolic request body carried between build time and
// the encode stage.
type BodyPayload struct {
	// Value is a single payload value, encoded in one piece. []byte and
	// io.Reader values pass through to the wire untouched.
	Value any
	// Stream is a lazy element sequence, encoded incrementally. Exactly
	// one of Value and Stream is set.
	Stream stream.Seq[any]
	// Type is the declared Go type of Value or of Stream elements.
	Type reflect.Type
}

// Attribute returns the named request attribute.
func (r *Request) Attribute(key string) (any, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// Attributes returns a copy of all request attributes.
func (r *Request) Attributes() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the request. Headers, cookies, and
// attributes are copied; the URL is duplicated; body payloads and wire
// readers are shared, since an in-flight stream cannot be duplicated.
func (r *Request) Clone() *Request {
	r2 := *r
	if r.URL != nil {
		u := *r.URL
		r2.URL = &u
	}
	r2.Header = r.Header.Clone()
	if r.Cookies != nil {
		r2.Cookies = make([]*http.Cookie, len(r.Cookies))
		copy(r2.Cookies, r.Cookies)
	}
	if r.attrs != nil {
		r2.attrs = make(map[string]any, len(r.attrs))
		for k, v := range r.attrs {
			r2.attrs[k] = v
		}
	}
	return &r2
}

// WithAttribute returns a clone of the request carrying the attribute.
func (r *Request) WithAttribute(key string, value any) *Request {
	r2 := r.Clone()
	if r2.attrs == nil {
		r2.attrs = make(map[string]any, 1)
	}
	r2.attrs[key] = value
	return r2
}

// methodForbidsBody reports whether the method is retrieval-only.
func methodForbidsBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// expandTemplate substitutes {name} placeholders in a URI template.
// Positional vars bind placeholders left to right; named vars bind by
// placeholder name. Values are percent-encoded for the component they land
// in: path-segment escaping before the first '?', query escaping after.
func expandTemplate(tpl string, vars []any, named map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))

	next := 0
	inQuery := false
	for i := 0; i < len(tpl); {
		c := tpl[i]
		switch c {
		case '?':
			inQuery = true
			b.WriteByte(c)
			i++
		case '{':
			end := strings.IndexByte(tpl[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in %q", tpl)
			}
			name := tpl[i+1 : i+end]
			if name == "" {
				return "", fmt.Errorf("empty placeholder in %q", tpl)
			}
			var value any
			if named != nil {
				v, ok := named[name]
				if !ok {
					return "", fmt.Errorf("no value for placeholder %q in %q", name, tpl)
				}
				value = v
			} else {
				if next >= len(vars) {
					return "", fmt.Errorf("%d variables for %q, placeholder %q has none", len(vars), tpl, name)
				}
				value = vars[next]
				next++
			}
			s := fmt.Sprint(value)
			if inQuery {
				b.WriteString(url.QueryEscape(s))
			} else {
				b.WriteString(url.PathEscape(s))
			}
			i += end + 1
		case '}':
			return "", fmt.Errorf("stray '}' in %q", tpl)
		default:
			b.WriteByte(c)
			i++
		}
	}
	if named == nil && next != len(vars) {
		return "", fmt.Errorf("%d variables for %q, template uses %d", len(vars), tpl, next)
	}
	return b.String(), nil
}

// resolveURL combines the base URL with an expanded template result.
// Absolute targets stand alone; relative ones require a base and are
// joined path-wise.
func resolveURL(base *url.URL, target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}
	if base == nil {
		return nil, fmt.Errorf("relative URI %q without a base URL", target)
	}
	joined := *base

	// Join on the escaped form so percent-encoded separators inside
	// expanded variables survive.
	full := strings.TrimSuffix(base.EscapedPath(), "/")
	if p := u.EscapedPath(); p != "" {
		if !strings.HasPrefix(p, "/") {
			full += "/"
		}
		full += p
	}
	decoded, err := url.PathUnescape(full)
	if err != nil {
		return nil, err
	}
	joined.Path = decoded
	joined.RawPath = full

	if u.RawQuery != "" {
		if joined.RawQuery != "" {
			joined.RawQuery += "&" + u.RawQuery
		} else {
			joined.RawQuery = u.RawQuery
		}
	}
	if u.Fragment != "" {
		joined.Fragment = u.Fragment
	}
	return &joined, nil
}
