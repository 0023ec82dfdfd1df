package filters

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/moods445/clientkit/codec"
	"github.com/moods445/clientkit/resilience"
	"github.com/moods445/clientkit/stream"
	"github.com/moods445/clientkit/webclient"
	"github.com/moods445/clientkit/webclient/testutil"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetry_TransportErrorThenSuccess(t *testing.T) {
	conn := testutil.NewConnector().
		EnqueueError(errors.New("connection reset")).
		Enqueue(200, nil, []byte("ok"))
	c := newClient(t, conn, Retry(fastRetry(3)))

	data, err := c.Get().URI("/orders").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("expected ok, got %q", data)
	}
	if got := len(conn.Calls()); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestRetry_RetryableStatusReleasesAndRetries(t *testing.T) {
	conn := testutil.NewConnector().
		Enqueue(503, nil, []byte("unavailable")).
		Enqueue(200, nil, []byte("ok"))
	c := newClient(t, conn, Retry(fastRetry(3)))

	data, err := c.Get().URI("/orders").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("expected ok, got %q", data)
	}

	releases := conn.Releases()
	if len(releases) != 2 {
		t.Fatalf("expected both responses released, got %d", len(releases))
	}
	// The abandoned 503 was drained, so its connection could be reused.
	if releases[0].Call != 0 || !releases[0].Reuse {
		t.Errorf("expected the first response drained for reuse, got %+v", releases[0])
	}
}

func TestRetry_ExhaustionReturnsLastResponse(t *testing.T) {
	conn := testutil.NewConnector().
		Enqueue(503, nil, []byte("u1")).
		Enqueue(503, nil, []byte("u2")).
		Enqueue(503, nil, []byte("u3"))
	c := newClient(t, conn, Retry(fastRetry(3)))

	resp, err := c.Get().URI("/orders").Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	data, err := resp.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "u3" {
		t.Errorf("expected the last response body, got %q", data)
	}
	if got := len(conn.Calls()); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestRetry_NonRetryableStatusPassesThrough(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(404, nil, nil)
	c := newClient(t, conn, Retry(fastRetry(3)))

	resp, err := c.Get().URI("/orders").Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Release()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestRetry_NonIdempotentPassesThrough(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(503, nil, nil)
	c := newClient(t, conn, Retry(fastRetry(3)))

	resp, err := c.Post().URI("/orders").BodyValue(map[string]int{"a": 1}).Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Release()
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected no retry for POST, got %d attempts", got)
	}
}

func TestRetry_AttrIdempotentOptsIn(t *testing.T) {
	conn := testutil.NewConnector().
		Enqueue(503, nil, nil).
		Enqueue(200, nil, []byte("ok"))
	c := newClient(t, conn, Retry(fastRetry(3)))

	data, err := c.Post().URI("/orders").
		Attribute(AttrIdempotent, true).
		BodyValue(map[string]int{"a": 1}).
		Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("expected ok, got %q", data)
	}

	calls := conn.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(calls))
	}
	// The payload was re-encoded for the second attempt.
	for i, call := range calls {
		if string(call.Body) != "{\"a\":1}\n" {
			t.Errorf("attempt %d: expected re-encoded body, got %q", i, call.Body)
		}
	}
}

func TestRetry_AttrIdempotentOptsOut(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(503, nil, nil)
	c := newClient(t, conn, Retry(fastRetry(3)))

	resp, err := c.Get().URI("/orders").Attribute(AttrIdempotent, false).Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Release()
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected no retry, got %d attempts", got)
	}
}

func TestRetry_StreamBodyPassesThrough(t *testing.T) {
	conn := testutil.NewConnector().Enqueue(503, nil, nil)
	c := newClient(t, conn, Retry(fastRetry(3)))

	rb := c.Post().URI("/events").
		Attribute(AttrIdempotent, true).
		ContentType(codec.ApplicationNDJSON)
	resp, err := webclient.StreamBody(rb, stream.FromSlice([]int{1, 2, 3})).Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Release()
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected no retry for a stream body, got %d attempts", got)
	}
}

func TestRetry_CancellationIsNotRetried(t *testing.T) {
	conn := testutil.NewConnector().EnqueueError(context.Canceled)
	c := newClient(t, conn, Retry(fastRetry(3)))

	_, err := c.Get().URI("/orders").Exchange(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := RetryableStatus(tt.status); got != tt.want {
			t.Errorf("RetryableStatus(%d): expected %v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestCanReplay(t *testing.T) {
	tests := []struct {
		name string
		req  *webclient.Request
		want bool
	}{
		{"no payload", &webclient.Request{}, true},
		{"value payload", &webclient.Request{Payload: &webclient.BodyPayload{Value: map[string]int{"a": 1}}}, true},
		{"reader payload", &webclient.Request{Payload: &webclient.BodyPayload{Value: strings.NewReader("x")}}, false},
		{"stream payload", &webclient.Request{Payload: &webclient.BodyPayload{Stream: stream.Empty[any]()}}, false},
		{"wire body set", &webclient.Request{Body: strings.NewReader("x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canReplay(tt.req); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "orders",
		MaxFailures: 2,
		Timeout:     time.Hour,
	})
	conn := testutil.NewConnector().
		Enqueue(500, nil, nil).
		Enqueue(500, nil, nil)
	c := newClient(t, conn, CircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		resp, err := c.Get().URI("/orders").Exchange(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != 500 {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		resp.Release()
	}

	_, err := c.Get().URI("/orders").Exchange(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if got := len(conn.Calls()); got != 2 {
		t.Errorf("expected the open circuit to skip the connector, got %d calls", got)
	}
}

func TestCircuitBreaker_TransportErrorsCount(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "orders",
		MaxFailures: 2,
		Timeout:     time.Hour,
	})
	conn := testutil.NewConnector().
		EnqueueError(errors.New("refused")).
		EnqueueError(errors.New("refused"))
	c := newClient(t, conn, CircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		if _, err := c.Get().URI("/orders").Exchange(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
	}

	if cb.State() != resilience.StateOpen {
		t.Errorf("expected open state, got %v", cb.State())
	}
}

func TestCircuitBreaker_SuccessKeepsClosed(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("orders"))
	conn := testutil.NewConnector().Enqueue(200, nil, nil).Enqueue(404, nil, nil)
	c := newClient(t, conn, CircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		resp, err := c.Get().URI("/orders").Exchange(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Release()
	}

	// 4xx is the caller's problem, not upstream health.
	if cb.State() != resilience.StateClosed {
		t.Errorf("expected closed state, got %v", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected no recorded failures, got %d", cb.Failures())
	}
}

func TestRateLimit_BlocksUntilContextExpires(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "orders",
		Rate:  0.001,
		Burst: 1,
	})
	conn := testutil.NewConnector().Enqueue(200, nil, nil)
	c := newClient(t, conn, RateLimit(rl))

	get(t, c, "/orders")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get().URI("/orders").Exchange(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if got := len(conn.Calls()); got != 1 {
		t.Errorf("expected the limited call never to reach the connector, got %d", got)
	}
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "orders",
		Rate:  100,
		Burst: 5,
	})
	conn := testutil.NewConnector().
		Enqueue(200, nil, nil).
		Enqueue(200, nil, nil).
		Enqueue(200, nil, nil)
	c := newClient(t, conn, RateLimit(rl))

	for i := 0; i < 3; i++ {
		get(t, c, "/orders")
	}
	if got := len(conn.Calls()); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestConcurrency_SlotHeldUntilRelease(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "orders", MaxConcurrent: 1})
	conn := testutil.NewConnector().
		Enqueue(200, nil, []byte("first")).
		Enqueue(200, nil, []byte("second"))
	c := newClient(t, conn, Concurrency(bh))

	resp, err := c.Get().URI("/orders").Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bh.InUse() != 1 {
		t.Errorf("expected the slot held while the body is unread, got %d in use", bh.InUse())
	}

	// The cap counts unconsumed responses, not just in-flight dispatches.
	_, err = c.Get().URI("/orders").Exchange(context.Background())
	if !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}

	resp.Release()
	if bh.InUse() != 0 {
		t.Errorf("expected the slot freed on release, got %d in use", bh.InUse())
	}

	resp2, err := c.Get().URI("/orders").Exchange(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp2.Release()
}

func TestConcurrency_SlotFreedOnTransportError(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "orders", MaxConcurrent: 1})
	conn := testutil.NewConnector().EnqueueError(errors.New("refused"))
	c := newClient(t, conn, Concurrency(bh))

	if _, err := c.Get().URI("/orders").Exchange(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if bh.InUse() != 0 {
		t.Errorf("expected no slot held after a failed exchange, got %d", bh.InUse())
	}
}
