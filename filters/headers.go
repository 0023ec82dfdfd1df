package filters

import (
	"context"
	"net/http"

	"github.com/moods445/clientkit/webclient"
)

// Modify returns a filter that applies fn to a clone of every request
// before it goes out. This is the escape hatch for one-off request
// rewriting; fn must not perform I/O.
func Modify(fn func(req *webclient.Request)) webclient.Filter {
	return func(next webclient.Exchange) webclient.Exchange {
		return func(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
			r2 := req.Clone()
			fn(r2)
			return next(ctx, r2)
		}
	}
}

// SetHeader returns a filter that sets a header on every request,
// replacing any value the request already carries.
func SetHeader(name, value string) webclient.Filter {
	return Modify(func(req *webclient.Request) {
		req.Header.Set(name, value)
	})
}

// AddHeader returns a filter that appends a header value, keeping values
// the request already carries.
func AddHeader(name, value string) webclient.Filter {
	return Modify(func(req *webclient.Request) {
		req.Header.Add(name, value)
	})
}

// UserAgent returns a filter that sets the User-Agent header.
func UserAgent(ua string) webclient.Filter {
	return SetHeader("User-Agent", ua)
}

// Cookie returns a filter that attaches a cookie to every request.
func Cookie(c *http.Cookie) webclient.Filter {
	return Modify(func(req *webclient.Request) {
		req.Cookies = append(req.Cookies, c)
	})
}

// SetQuery returns a filter that forces a query parameter on every
// request, replacing any value of the same name.
func SetQuery(name, value string) webclient.Filter {
	return Modify(func(req *webclient.Request) {
		q := req.URL.Query()
		q.Set(name, value)
		req.URL.RawQuery = q.Encode()
	})
}
