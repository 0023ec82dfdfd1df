package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/moods445/clientkit/filters"
	"github.com/moods445/clientkit/resilience"
	"github.com/moods445/clientkit/security"
	"github.com/moods445/clientkit/webclient"
)

const defaultTimeout = 30 * time.Second

// Profile is a declarative client definition. Profiles live under the
// `clients` key of config.yml, one entry per upstream service, and turn
// into ready clients via Build.
//
//	clients:
//	  payments:
//	    base_url: https://payments.internal
//	    timeout: 5s
//	    headers:
//	      Accept: application/json
//	    retry:
//	      max_attempts: 4
//	    breaker:
//	      max_failures: 5
type Profile struct {
	// Name is the profile key. Set by Load; used to name the breaker and
	// rate limiter.
	Name string `yaml:"-" mapstructure:"-"`

	// BaseURL is the base URL every relative request path resolves against.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout is the default per-exchange timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Auth configures request authentication. Nil disables it.
	Auth *AuthProfile `yaml:"auth" mapstructure:"auth"`

	// TLS configures transport security for the default connector.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// H2C speaks cleartext HTTP/2. Conflicts with TLS settings.
	H2C bool `yaml:"h2c" mapstructure:"h2c"`

	// RequestID injects an X-Request-Id header when true.
	RequestID bool `yaml:"request_id" mapstructure:"request_id"`

	// Logging enables request logging through the global logger.
	Logging bool `yaml:"logging" mapstructure:"logging"`

	// Retry configures retries. Nil disables them.
	Retry *RetryProfile `yaml:"retry" mapstructure:"retry"`

	// Breaker configures a circuit breaker. Nil disables it.
	Breaker *BreakerProfile `yaml:"breaker" mapstructure:"breaker"`

	// RateLimit configures a token bucket limiter. Nil disables it.
	RateLimit *RateLimitProfile `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AuthProfile selects an authentication scheme by name so it can come from
// configuration. Secrets normally arrive through .env overrides rather than
// the checked-in config file.
type AuthProfile struct {
	// Type is one of "bearer", "basic", "api_key".
	Type string `yaml:"type" mapstructure:"type" validate:"required,oneof=bearer basic api_key"`

	// Token is the bearer token (bearer).
	Token string `yaml:"token" mapstructure:"token" validate:"required_if=Type bearer"`

	// Username and Password are the basic auth credentials (basic).
	Username string `yaml:"username" mapstructure:"username" validate:"required_if=Type basic"`
	Password string `yaml:"password" mapstructure:"password" validate:"required_if=Type basic"`

	// Key is the API key value (api_key).
	Key string `yaml:"key" mapstructure:"key" validate:"required_if=Type api_key"`

	// In places the API key in a "header" (default) or "query" parameter.
	In string `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`

	// Name is the header or query parameter name. Defaults to X-API-Key.
	Name string `yaml:"name" mapstructure:"name"`
}

// RetryProfile mirrors resilience.RetryConfig with the declarative subset.
// Zero fields fall back to the resilience defaults; retry classification is
// always the client's Retryable flag.
type RetryProfile struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"omitempty,min=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"omitempty,gt=0"`
	Jitter         float64       `yaml:"jitter" mapstructure:"jitter" validate:"omitempty,gte=0,lte=1"`
}

// BreakerProfile mirrors resilience.CircuitBreakerConfig.
type BreakerProfile struct {
	MaxFailures      int           `yaml:"max_failures" mapstructure:"max_failures" validate:"omitempty,min=1"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"omitempty,min=1"`
}

// RateLimitProfile mirrors resilience.RateLimiterConfig.
type RateLimitProfile struct {
	Rate  float64 `yaml:"rate" mapstructure:"rate" validate:"required,gt=0"`
	Burst int     `yaml:"burst" mapstructure:"burst" validate:"omitempty,min=1"`
}

// clientsFile is the shape Load reads from configuration. Values stay
// untyped: automatic env binding can plant stray scalar keys under clients
// (CLIENTS_PAYMENTS_AUTH_TOKEN also generates clients.payments_auth_token),
// and those must not break decoding of the real profiles.
type clientsFile struct {
	Clients map[string]any `yaml:"clients" mapstructure:"clients"`
}

// Load reads the named client profile from config.yml and .env, applies
// defaults and validates it. File resolution follows LoadConfig; profile
// fields can be overridden per key, e.g. CLIENTS_PAYMENTS_AUTH_TOKEN.
func Load(name string, opts ...LoaderOption) (*Profile, error) {
	var file clientsFile
	if err := LoadConfig(name, &file, opts...); err != nil {
		return nil, err
	}
	raw, ok := file.Clients[name]
	if !ok {
		return nil, fmt.Errorf("config: no client profile %q", name)
	}
	sub, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config: client profile %q is not a mapping", name)
	}

	pv := viper.New()
	if err := pv.MergeConfigMap(sub); err != nil {
		return nil, fmt.Errorf("config: client profile %q: %w", name, err)
	}
	p := &Profile{}
	if err := pv.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("config: client profile %q: %w", name, err)
	}

	p.Name = name
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (p *Profile) ApplyDefaults() {
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.Auth != nil && p.Auth.Name == "" && p.Auth.Type == "api_key" {
		p.Auth.Name = "X-API-Key"
	}
}

// Validate checks the profile against its field rules and the TLS settings.
func (p *Profile) Validate() error {
	if err := profileValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, e.Field()+" "+validationMessage(e))
			}
			return fmt.Errorf("config: profile %q: %s", p.Name, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: profile %q: %w", p.Name, err)
	}
	if err := p.TLS.Validate(); err != nil {
		return fmt.Errorf("config: profile %q: %w", p.Name, err)
	}
	return nil
}

// Builder returns a client builder wired from the profile. Callers can
// adjust it (swap the connector, add filters) before building.
//
// Filter order: RequestID, Logging, Retry, CircuitBreaker, RateLimit, then
// auth innermost so credentials are reapplied on every retry attempt.
func (p *Profile) Builder() (*webclient.Builder, error) {
	b := webclient.NewBuilder().BaseURL(p.BaseURL).Timeout(p.Timeout)

	for k, v := range p.Headers {
		b.DefaultHeader(k, v)
	}
	if p.UserAgent != "" {
		b.DefaultHeader("User-Agent", p.UserAgent)
	}

	if p.TLS.IsEnabled() || p.H2C {
		conn, err := webclient.NewHTTPConnector(webclient.HTTPConnectorConfig{
			TLS:       p.TLS,
			EnableH2C: p.H2C,
		})
		if err != nil {
			return nil, fmt.Errorf("config: profile %q: %w", p.Name, err)
		}
		b.Connector(conn)
	}

	if p.RequestID {
		b.Filter(filters.RequestID())
	}
	if p.Logging {
		b.Filter(filters.Logging(nil))
	}
	if p.Retry != nil {
		b.Filter(filters.Retry(p.Retry.toConfig()))
	}
	if p.Breaker != nil {
		b.Filter(filters.CircuitBreaker(resilience.NewCircuitBreaker(p.Breaker.toConfig(p.Name))))
	}
	if p.RateLimit != nil {
		b.Filter(filters.RateLimit(resilience.NewRateLimiter(p.RateLimit.toConfig(p.Name))))
	}
	if p.Auth != nil {
		b.Filter(p.Auth.filter())
	}

	return b, nil
}

// Build produces a ready client from the profile.
func (p *Profile) Build() (*webclient.Client, error) {
	b, err := p.Builder()
	if err != nil {
		return nil, err
	}
	return b.Build()
}

func (a *AuthProfile) filter() webclient.Filter {
	switch a.Type {
	case "bearer":
		return filters.BearerToken(a.Token)
	case "basic":
		return filters.BasicAuth(a.Username, a.Password)
	case "api_key":
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			return filters.APIKeyQuery(a.Key, name)
		}
		return filters.APIKeyHeader(a.Key, name)
	}
	return nil
}

func (r *RetryProfile) toConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		BackoffFactor:  r.BackoffFactor,
		Jitter:         r.Jitter,
	}
}

func (b *BreakerProfile) toConfig(name string) resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	if b.MaxFailures > 0 {
		cfg.MaxFailures = b.MaxFailures
	}
	if b.Timeout > 0 {
		cfg.Timeout = b.Timeout
	}
	if b.HalfOpenMaxCalls > 0 {
		cfg.HalfOpenMaxCalls = b.HalfOpenMaxCalls
	}
	return cfg
}

func (rl *RateLimitProfile) toConfig(name string) resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Name:  name,
		Rate:  rl.Rate,
		Burst: rl.Burst,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// profileValidator returns the singleton validator instance. Field names in
// error messages use the mapstructure tag so they match the config file.
func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validationMessage creates a human-readable message for a field error.
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for this auth type"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte", "lte":
		return "must be between 0 and 1"
	default:
		return "is invalid"
	}
}
