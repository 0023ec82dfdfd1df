package webclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/moods445/clientkit/security"
)

// Connector performs the wire-level exchange. The pipeline assumes nothing
// about the transport behind it: connectors own connection management, TLS,
// and protocol selection, and report connection disposal through the
// response's release callback.
//
// A connector receives requests with the body already encoded (Body,
// GetBody, ContentLength); the symbolic Payload is informational at this
// point.
type Connector interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// HTTPConnectorConfig configures the default net/http connector.
type HTTPConnectorConfig struct {
	// Transport overrides the built transport entirely. All other
	// transport settings are ignored when set.
	Transport http.RoundTripper

	// TLS configures server verification and client certificates.
	TLS *security.TLSConfig

	// EnableH2C speaks cleartext HTTP/2, for backends behind plaintext
	// load balancers or local gRPC-style services.
	EnableH2C bool

	// DialTimeout bounds connection establishment in h2c mode.
	DialTimeout time.Duration

	// Idle pool tuning. Zero values keep the transport defaults.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// ApplyDefaults fills in default values for unset fields.
func (c *HTTPConnectorConfig) ApplyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for consistency.
func (c *HTTPConnectorConfig) Validate() error {
	if c.EnableH2C && c.TLS.IsEnabled() {
		return fmt.Errorf("webclient: h2c is cleartext; TLS settings conflict")
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

// HTTPConnector executes exchanges over net/http.
type HTTPConnector struct {
	client *http.Client
}

// NewHTTPConnector builds the default connector. The underlying transport
// is a clone of http.DefaultTransport with the configured TLS and pool
// settings applied, or a cleartext HTTP/2 transport in h2c mode.
func NewHTTPConnector(cfg HTTPConnectorConfig) (*HTTPConnector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var transport http.RoundTripper
	switch {
	case cfg.Transport != nil:
		transport = cfg.Transport
	case cfg.EnableH2C:
		dialTimeout := cfg.DialTimeout
		transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, network, addr)
			},
		}
	default:
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLS != nil {
			tlsCfg, err := cfg.TLS.Build()
			if err != nil {
				return nil, err
			}
			if tlsCfg != nil {
				t.TLSClientConfig = tlsCfg
			}
		}
		if cfg.MaxIdleConns > 0 {
			t.MaxIdleConns = cfg.MaxIdleConns
		}
		if cfg.MaxIdleConnsPerHost > 0 {
			t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
		}
		if cfg.IdleConnTimeout > 0 {
			t.IdleConnTimeout = cfg.IdleConnTimeout
		}
		transport = t
	}

	// No client-level timeout: the context carries all deadlines, and a
	// client timeout would cut off long-lived streams.
	return &HTTPConnector{client: &http.Client{Transport: transport}}, nil
}

// Execute sends the request and wraps the wire response. Transport errors
// are returned as-is; the pipeline classifies them.
func (c *HTTPConnector) Execute(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, NewInvalidRequestError(err.Error())
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	for _, ck := range req.Cookies {
		httpReq.AddCookie(ck)
	}
	if req.Body != nil {
		httpReq.ContentLength = req.ContentLength
	}
	if req.GetBody != nil {
		httpReq.GetBody = req.GetBody
	}

	hr, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return NewResponse(ResponseConfig{
		StatusCode:    hr.StatusCode,
		Status:        hr.Status,
		Header:        hr.Header,
		ContentLength: hr.ContentLength,
		Body:          hr.Body,
		// net/http pools a connection closed at EOF and discards one
		// closed early, so disposal is the same call either way.
		Release: func(reuse bool) error {
			return hr.Body.Close()
		},
	}), nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *HTTPConnector) Unwrap() *http.Client {
	return c.client
}

// CloseIdleConnections drops pooled connections.
func (c *HTTPConnector) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
