package filters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/moods445/clientkit/webclient"
)

// JWTAssertionConfig configures client-signed bearer assertions.
type JWTAssertionConfig struct {
	// Method is the signing algorithm name as registered with golang-jwt
	// (HS256, RS256, ES256, ...). Default: HS256.
	Method string
	// Secret is the HMAC signing key (required for HS* methods).
	Secret string
	// PrivateKey is the RSA or ECDSA private key (required for RS*/ES*
	// methods).
	PrivateKey any
	// Issuer is the "iss" claim (optional).
	Issuer string
	// Subject is the "sub" claim (optional).
	Subject string
	// Audience is the "aud" claim (optional).
	Audience []string
	// TTL is the assertion lifetime (default: 5m).
	TTL time.Duration
	// Leeway renews the cached assertion this long before it expires
	// (default: 30s).
	Leeway time.Duration
	// Claims adds custom claims to every assertion.
	Claims map[string]any
}

// ApplyDefaults fills in zero-value fields.
func (c *JWTAssertionConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = "HS256"
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Leeway == 0 {
		c.Leeway = 30 * time.Second
	}
}

// Validate checks that the signing key matches the method.
func (c *JWTAssertionConfig) Validate() error {
	method := gojwt.GetSigningMethod(c.Method)
	if method == nil {
		return fmt.Errorf("unsupported signing method %q", c.Method)
	}
	if _, hmac := method.(*gojwt.SigningMethodHMAC); hmac {
		if c.Secret == "" {
			return errors.New("secret is required for HMAC signing methods")
		}
	} else if c.PrivateKey == nil {
		return errors.New("private key is required for " + c.Method)
	}
	if c.Leeway >= c.TTL {
		return errors.New("leeway must be shorter than ttl")
	}
	return nil
}

func (c *JWTAssertionConfig) signKey() any {
	if c.Secret != "" {
		return []byte(c.Secret)
	}
	return c.PrivateKey
}

// JWTAssertion returns a filter that signs a short-lived JWT and sends it
// as a bearer token, the client-assertion flow used for service-to-service
// authentication. Assertions carry iss/sub/aud/iat/exp/jti claims plus any
// configured extras, and are cached until Leeway before expiry.
func JWTAssertion(cfg JWTAssertionConfig) webclient.Filter {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return failEvery(fmt.Errorf("filters: jwt assertion: %w", err))
	}
	signer := &assertionSigner{
		cfg:    cfg,
		method: gojwt.GetSigningMethod(cfg.Method),
		key:    cfg.signKey(),
	}
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			token, err := signer.token(time.Now())
			if err != nil {
				return nil, fmt.Errorf("filters: sign assertion: %w", err)
			}
			r2 := req.Clone()
			r2.Header.Set("Authorization", "Bearer "+token)
			return next(ctx, r2)
		}
	}
}

// assertionSigner signs and caches one assertion at a time.
type assertionSigner struct {
	cfg    JWTAssertionConfig
	method gojwt.SigningMethod
	key    any

	mu      sync.Mutex
	signed  string
	renewAt time.Time
}

func (s *assertionSigner) token(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signed != "" && now.Before(s.renewAt) {
		return s.signed, nil
	}

	claims := gojwt.MapClaims{
		"jti": uuid.NewString(),
		"iat": gojwt.NewNumericDate(now),
		"exp": gojwt.NewNumericDate(now.Add(s.cfg.TTL)),
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if s.cfg.Subject != "" {
		claims["sub"] = s.cfg.Subject
	}
	if len(s.cfg.Audience) > 0 {
		claims["aud"] = s.cfg.Audience
	}
	for k, v := range s.cfg.Claims {
		claims[k] = v
	}

	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", err
	}
	s.signed = signed
	s.renewAt = now.Add(s.cfg.TTL - s.cfg.Leeway)
	return signed, nil
}

// failEvery returns a filter that fails every exchange with err. Invalid
// filter configuration surfaces on first use instead of panicking at
// wiring time.
func failEvery(err error) webclient.Filter {
	return func(webclient.Exchange) webclient.Exchange {
		return func(context.Context, *webclient.Request) (*webclient.Response, error) {
			return nil, err
		}
	}
}
