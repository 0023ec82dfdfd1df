package codec

import (
	"fmt"
	"mime"
	"strings"
)

// MediaType is a parsed MIME media type with optional parameters.
// The zero value means "unspecified" and is used by callers that did not
// declare a content type.
type MediaType struct {
	// Type is the top-level type (e.g. "application"). "*" matches any.
	Type string
	// Subtype is the subtype (e.g. "json"). "*" matches any.
	Subtype string
	// Params holds media type parameters such as charset or boundary.
	Params map[string]string
}

// Well-known media types.
var (
	Wildcard               = MediaType{Type: "*", Subtype: "*"}
	ApplicationJSON        = MediaType{Type: "application", Subtype: "json"}
	ApplicationNDJSON      = MediaType{Type: "application", Subtype: "x-ndjson"}
	ApplicationStreamJSON  = MediaType{Type: "application", Subtype: "stream+json"}
	ApplicationForm        = MediaType{Type: "application", Subtype: "x-www-form-urlencoded"}
	ApplicationOctetStream = MediaType{Type: "application", Subtype: "octet-stream"}
	MultipartFormData      = MediaType{Type: "multipart", Subtype: "form-data"}
	TextPlain              = MediaType{Type: "text", Subtype: "plain"}
	TextEventStream        = MediaType{Type: "text", Subtype: "event-stream"}
)

// ParseMediaType parses a Content-Type header value.
func ParseMediaType(s string) (MediaType, error) {
	if strings.TrimSpace(s) == "" {
		return MediaType{}, fmt.Errorf("codec: empty media type")
	}
	full, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, fmt.Errorf("codec: parse media type %q: %w", s, err)
	}
	typ, sub, ok := strings.Cut(full, "/")
	if !ok || typ == "" || sub == "" {
		return MediaType{}, fmt.Errorf("codec: malformed media type %q", s)
	}
	if len(params) == 0 {
		params = nil
	}
	return MediaType{Type: typ, Subtype: sub, Params: params}, nil
}

// IsZero reports whether the media type is unspecified.
func (m MediaType) IsZero() bool {
	return m.Type == "" && m.Subtype == ""
}

// String renders the media type as a Content-Type header value.
func (m MediaType) String() string {
	if m.IsZero() {
		return ""
	}
	return mime.FormatMediaType(m.Type+"/"+m.Subtype, m.Params)
}

// Param returns the named parameter value, or "" if absent.
func (m MediaType) Param(name string) string {
	return m.Params[strings.ToLower(name)]
}

// WithParam returns a copy of m with the parameter set.
func (m MediaType) WithParam(name, value string) MediaType {
	params := make(map[string]string, len(m.Params)+1)
	for k, v := range m.Params {
		params[k] = v
	}
	params[strings.ToLower(name)] = value
	m.Params = params
	return m
}

// Includes reports whether m covers other, honoring "*" wildcards in m.
// Parameters are ignored. A zero receiver includes nothing; a zero argument
// is included only by a full wildcard.
func (m MediaType) Includes(other MediaType) bool {
	if m.IsZero() {
		return false
	}
	if m.Type == "*" && m.Subtype == "*" {
		return true
	}
	if other.IsZero() {
		return false
	}
	if !strings.EqualFold(m.Type, other.Type) {
		return false
	}
	return m.Subtype == "*" || strings.EqualFold(m.Subtype, other.Subtype)
}

// EqualsTypeAndSubtype reports type/subtype equality, ignoring parameters.
func (m MediaType) EqualsTypeAndSubtype(other MediaType) bool {
	return strings.EqualFold(m.Type, other.Type) && strings.EqualFold(m.Subtype, other.Subtype)
}

// isJSONFamily reports whether m is JSON or a +json structured syntax.
func isJSONFamily(m MediaType) bool {
	if !strings.EqualFold(m.Type, "application") {
		return false
	}
	sub := strings.ToLower(m.Subtype)
	return sub == "json" || strings.HasSuffix(sub, "+json")
}

// isJSONStream reports whether m is a newline-delimited JSON stream type.
func isJSONStream(m MediaType) bool {
	return m.EqualsTypeAndSubtype(ApplicationNDJSON) || m.EqualsTypeAndSubtype(ApplicationStreamJSON)
}
