// Package config loads declarative client profiles from config.yml and
// .env files.
//
// A profile names an upstream service and carries everything needed to
// build a client for it: base URL, default headers, timeout, TLS, auth,
// and resilience settings. Load resolves the files, applies environment
// overrides, validates the profile, and Build turns it into a ready
// *webclient.Client:
//
//	profile, err := config.Load("payments")
//	if err != nil {
//	    return err
//	}
//	client, err := profile.Build()
//
// Environment variables override file values using underscore-separated
// paths (e.g. CLIENTS_PAYMENTS_AUTH_TOKEN), so secrets stay out of the
// checked-in config file.
//
// LoadConfig is the generic loader underneath: it fills any tagged struct
// from the same file resolution, for callers that keep client profiles
// inside a larger application config.
package config
