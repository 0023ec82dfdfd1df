package filters

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/moods445/clientkit/webclient"
)

// BearerToken returns a filter that sends a fixed bearer token in the
// Authorization header.
func BearerToken(token string) webclient.Filter {
	return SetHeader("Authorization", "Bearer "+token)
}

// BearerTokenProvider returns a filter that asks provider for a token on
// every exchange. Use it when tokens rotate, such as OAuth client
// credentials or workload identity.
func BearerTokenProvider(provider func(ctx context.Context) (string, error)) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			token, err := provider(ctx)
			if err != nil {
				return nil, fmt.Errorf("filters: bearer token: %w", err)
			}
			r2 := req.Clone()
			r2.Header.Set("Authorization", "Bearer "+token)
			return next(ctx, r2)
		}
	}
}

// BasicAuth returns a filter that sends HTTP Basic credentials in the
// Authorization header.
func BasicAuth(username, password string) webclient.Filter {
	cred := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return SetHeader("Authorization", "Basic "+cred)
}

// APIKey returns a filter that sends an API key in the X-API-Key header.
func APIKey(key string) webclient.Filter {
	return APIKeyHeader(key, "X-API-Key")
}

// APIKeyHeader returns a filter that sends an API key in a custom header.
func APIKeyHeader(key, name string) webclient.Filter {
	return SetHeader(name, key)
}

// APIKeyQuery returns a filter that sends an API key as a query parameter.
func APIKeyQuery(key, name string) webclient.Filter {
	return SetQuery(name, key)
}
