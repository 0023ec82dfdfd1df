package filters

import (
	"context"
	"net/http"
	"testing"

	"github.com/moods445/clientkit/webclient"
	"github.com/moods445/clientkit/webclient/testutil"
)

// newClient wires a client with the given filters against conn.
func newClient(t *testing.T, conn webclient.Connector, fs ...webclient.Filter) *webclient.Client {
	t.Helper()
	c, err := webclient.NewBuilder().
		BaseURL("https://api.example.com").
		Connector(conn).
		Filters(fs...).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

// get runs one GET through the client and settles the response.
func get(t *testing.T, c *webclient.Client, uri string) {
	t.Helper()
	if _, err := c.Get().URI(uri).Retrieve().Bytes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetHeader(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, SetHeader("X-Tenant", "acme"))

	get(t, c, "/orders")

	if got := conn.LastCall().Request.Header.Get("X-Tenant"); got != "acme" {
		t.Errorf("expected X-Tenant acme, got %q", got)
	}
}

func TestSetHeader_ReplacesRequestValue(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, SetHeader("X-Tenant", "acme"))

	_, err := c.Get().URI("/orders").Header("X-Tenant", "other").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := conn.LastCall().Request.Header.Values("X-Tenant"); len(got) != 1 || got[0] != "acme" {
		t.Errorf("expected [acme], got %v", got)
	}
}

func TestAddHeader_KeepsRequestValues(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, AddHeader("X-Tag", "b"))

	_, err := c.Get().URI("/orders").Header("X-Tag", "a").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := conn.LastCall().Request.Header.Values("X-Tag")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestUserAgent(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, UserAgent("clientkit/1.0"))

	get(t, c, "/orders")

	if got := conn.LastCall().Request.Header.Get("User-Agent"); got != "clientkit/1.0" {
		t.Errorf("expected clientkit/1.0, got %q", got)
	}
}

func TestCookie(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, Cookie(&http.Cookie{Name: "session", Value: "s1"}))

	get(t, c, "/orders")

	cookies := conn.LastCall().Request.Cookies
	if len(cookies) != 1 || cookies[0].Name != "session" || cookies[0].Value != "s1" {
		t.Errorf("expected session cookie, got %v", cookies)
	}
}

func TestSetQuery(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, SetQuery("api-version", "2024-01"))

	_, err := c.Get().URI("/orders").Query("api-version", "old").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := conn.LastCall().Request.URL.Query()
	if got := q["api-version"]; len(got) != 1 || got[0] != "2024-01" {
		t.Errorf("expected [2024-01], got %v", got)
	}
}

func TestModify_DoesNotMutateOriginal(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, Modify(func(req *webclient.Request) {
		req.Header.Set("X-Injected", "yes")
	}))

	req, err := c.Get().URI("/orders").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Release()

	if req.Header.Get("X-Injected") != "" {
		t.Error("filter must not mutate the request it received")
	}
	if got := conn.LastCall().Request.Header.Get("X-Injected"); got != "yes" {
		t.Errorf("expected injected header at the connector, got %q", got)
	}
}
