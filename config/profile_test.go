package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moods445/clientkit/resilience"
	"github.com/moods445/clientkit/security"
	"github.com/moods445/clientkit/webclient/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Profile(t *testing.T) {
	path := writeConfig(t, `
clients:
  payments:
    base_url: https://payments.internal
    timeout: 5s
    user_agent: payments-worker/2.1
    headers:
      accept: application/json
    request_id: true
    auth:
      type: bearer
      token: tok-1
    retry:
      max_attempts: 4
      initial_backoff: 50ms
    breaker:
      max_failures: 8
      timeout: 10s
    rate_limit:
      rate: 100
      burst: 10
`)

	p, err := Load("payments", WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Name != "payments" {
		t.Errorf("expected name payments, got %q", p.Name)
	}
	if p.BaseURL != "https://payments.internal" {
		t.Errorf("expected base URL https://payments.internal, got %q", p.BaseURL)
	}
	if p.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", p.Timeout)
	}
	if p.UserAgent != "payments-worker/2.1" {
		t.Errorf("expected user agent payments-worker/2.1, got %q", p.UserAgent)
	}
	if got := p.Headers["accept"]; got != "application/json" {
		t.Errorf("expected accept header, got %q", got)
	}
	if !p.RequestID {
		t.Error("expected request_id enabled")
	}
	if p.Auth == nil || p.Auth.Type != "bearer" || p.Auth.Token != "tok-1" {
		t.Errorf("expected bearer auth, got %+v", p.Auth)
	}
	if p.Retry == nil || p.Retry.MaxAttempts != 4 || p.Retry.InitialBackoff != 50*time.Millisecond {
		t.Errorf("expected retry settings, got %+v", p.Retry)
	}
	if p.Breaker == nil || p.Breaker.MaxFailures != 8 || p.Breaker.Timeout != 10*time.Second {
		t.Errorf("expected breaker settings, got %+v", p.Breaker)
	}
	if p.RateLimit == nil || p.RateLimit.Rate != 100 || p.RateLimit.Burst != 10 {
		t.Errorf("expected rate limit settings, got %+v", p.RateLimit)
	}
}

func TestLoad_DefaultTimeout(t *testing.T) {
	path := writeConfig(t, `
clients:
  search:
    base_url: https://search.internal
`)

	p, err := Load("search", WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", p.Timeout)
	}
}

func TestLoad_MissingProfile(t *testing.T) {
	path := writeConfig(t, `
clients:
  payments:
    base_url: https://payments.internal
`)

	_, err := Load("orders", WithConfigFile(path))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `no client profile "orders"`) {
		t.Errorf("expected missing-profile error, got %v", err)
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	path := writeConfig(t, `
clients:
  payments:
    timeout: 5s
`)

	_, err := Load("payments", WithConfigFile(path))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "base_url is required") {
		t.Errorf("expected base_url validation error, got %v", err)
	}
}

func TestLoad_InvalidAuthType(t *testing.T) {
	path := writeConfig(t, `
clients:
  payments:
    base_url: https://payments.internal
    auth:
      type: oauth2
`)

	_, err := Load("payments", WithConfigFile(path))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("expected oneof validation error, got %v", err)
	}
}

func TestLoad_BearerRequiresToken(t *testing.T) {
	path := writeConfig(t, `
clients:
  payments:
    base_url: https://payments.internal
    auth:
      type: bearer
`)

	_, err := Load("payments", WithConfigFile(path))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "token is required") {
		t.Errorf("expected token validation error, got %v", err)
	}
}

func TestLoad_EnvOverridesToken(t *testing.T) {
	t.Setenv("CLIENTS_SHIPPING_AUTH_TOKEN", "from-env")
	path := writeConfig(t, `
clients:
  shipping:
    base_url: https://shipping.internal
    auth:
      type: bearer
      token: from-file
`)

	p, err := Load("shipping", WithConfigFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Auth == nil || p.Auth.Token != "from-env" {
		t.Errorf("expected token from-env, got %+v", p.Auth)
	}
}

func TestProfile_BuildWiresRequestFilters(t *testing.T) {
	p := &Profile{
		Name:      "payments",
		BaseURL:   "https://payments.internal",
		UserAgent: "payments-worker/2.1",
		Headers:   map[string]string{"accept": "application/json"},
		RequestID: true,
		Auth:      &AuthProfile{Type: "bearer", Token: "tok-1"},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := p.Builder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn := testutil.NewConnector().Enqueue(200, nil, []byte("ok"))
	c, err := b.Connector(conn).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Get().URI("/charges").Retrieve().Bytes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hdr := conn.LastCall().Request.Header
	if got := hdr.Get("Authorization"); got != "Bearer tok-1" {
		t.Errorf("expected bearer header, got %q", got)
	}
	if hdr.Get("X-Request-Id") == "" {
		t.Error("expected a generated request ID")
	}
	if got := hdr.Get("Accept"); got != "application/json" {
		t.Errorf("expected accept header, got %q", got)
	}
	if got := hdr.Get("User-Agent"); got != "payments-worker/2.1" {
		t.Errorf("expected user agent, got %q", got)
	}
}

func TestProfile_BuildWiresRetry(t *testing.T) {
	p := &Profile{
		Name:    "payments",
		BaseURL: "https://payments.internal",
		Retry:   &RetryProfile{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	}
	b, err := p.Builder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn := testutil.NewConnector().
		Enqueue(503, nil, []byte("unavailable")).
		Enqueue(200, nil, []byte("ok"))
	c, err := b.Connector(conn).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, err := c.Get().URI("/charges").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("expected body ok, got %q", body)
	}
	if got := len(conn.Calls()); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestProfile_BuildWiresBreaker(t *testing.T) {
	p := &Profile{
		Name:    "payments",
		BaseURL: "https://payments.internal",
		Breaker: &BreakerProfile{MaxFailures: 1, Timeout: time.Hour},
	}
	b, err := p.Builder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn := testutil.NewConnector().
		Enqueue(500, nil, nil).
		Enqueue(200, nil, nil)
	c, err := b.Connector(conn).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Get().URI("/charges").Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if err := resp.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The breaker is shared across exchanges, so the next call fails fast.
	_, err = c.Get().URI("/charges").Exchange(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestProfile_H2CConflictsWithTLS(t *testing.T) {
	p := &Profile{
		Name:    "payments",
		BaseURL: "https://payments.internal",
		H2C:     true,
		TLS:     &security.TLSConfig{SkipVerify: true},
	}
	if _, err := p.Builder(); err == nil {
		t.Fatal("expected an error")
	}
}

func TestProfile_BuildUsesDefaultConnector(t *testing.T) {
	p := &Profile{Name: "payments", BaseURL: "https://payments.internal"}
	c, err := p.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected a client")
	}
}
