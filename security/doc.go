// Package security provides TLS configuration for outbound connections.
//
// A TLSConfig can come from code or from a client profile in configuration.
// Build turns it into a *tls.Config for the connector's transport.
//
// # TLS Configuration
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/path/to/ca.pem",
//	    CertFile: "/path/to/cert.pem",
//	    KeyFile:  "/path/to/key.pem",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
