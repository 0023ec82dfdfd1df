package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// --- status mapping tests ---

func TestRetrieve_DefaultErrorMapping(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP_%d", tt.code), func(t *testing.T) {
			c := testClient(t, func(b *Builder) {
				b.Connector(stubConnector(tt.code, jsonHeader(), `{"error":"boom"}`))
			})

			_, err := c.Get().URI("/x").Retrieve().Bytes(context.Background())
			if err == nil {
				t.Fatal("expected status error")
			}
			if !IsStatus(err) {
				t.Fatalf("expected status error, got %v", err)
			}
			if got := StatusOf(err); got != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, got)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("expected retryable=%v for %d", tt.retryable, tt.code)
			}
			var ce *Error
			errors.As(err, &ce)
			if string(ce.Body) != `{"error":"boom"}` {
				t.Errorf("expected captured error body, got %q", ce.Body)
			}
		})
	}
}

func TestRetrieve_SuccessBypassesMapping(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(200, jsonHeader(), `{"id":1,"name":"A"}`))
	})

	got, err := BodyAs[user](context.Background(), c.Get().URI("/x").Retrieve())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestRetrieve_OnStatusFirstMatchWins(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(404, nil, "missing"))
	})

	first := errors.New("not found")
	second := errors.New("generic client error")
	_, err := c.Get().URI("/x").Retrieve().
		OnStatus(StatusIs(404), func(ctx context.Context, resp *Response) error { return first }).
		OnStatus(Status4xx, func(ctx context.Context, resp *Response) error { return second }).
		Bytes(context.Background())
	if !errors.Is(err, first) {
		t.Errorf("expected first registered mapping to win, got %v", err)
	}
}

func TestRetrieve_OnStatusNilProceedsToDecode(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(404, jsonHeader(), `{"id":0,"name":"fallback"}`))
	})

	got, err := BodyAs[user](context.Background(), c.Get().URI("/x").Retrieve().
		OnStatus(StatusIs(404), func(ctx context.Context, resp *Response) error { return nil }))
	if err != nil {
		t.Fatalf("accepted status should decode normally, got %v", err)
	}
	if got.Name != "fallback" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestRetrieve_OnStatusHandlerReadsErrorBody(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(422, jsonHeader(), `{"field":"name","reason":"required"}`))
	})

	type apiError struct {
		Field  string `json:"field"`
		Reason string `json:"reason"`
	}
	var decoded apiError
	_, err := c.Get().URI("/x").Retrieve().
		OnStatus(StatusIs(422), func(ctx context.Context, resp *Response) error {
			if derr := resp.Decode(&decoded); derr != nil {
				return derr
			}
			return fmt.Errorf("validation failed on %s: %s", decoded.Field, decoded.Reason)
		}).
		Bytes(context.Background())
	if err == nil {
		t.Fatal("expected mapped error")
	}
	if decoded.Field != "name" {
		t.Errorf("handler could not read the error payload: %+v", decoded)
	}
}

func TestRetrieve_OnStatusErrorReleasesResponse(t *testing.T) {
	released := false
	c := testClient(t, func(b *Builder) {
		b.Connector(connectorFunc(func(ctx context.Context, req *Request) (*Response, error) {
			return NewResponse(ResponseConfig{
				StatusCode: 503,
				Release: func(reuse bool) error {
					released = true
					return nil
				},
			}), nil
		}))
	})

	_, err := c.Get().URI("/x").Retrieve().
		OnStatus(Status5xx, func(ctx context.Context, resp *Response) error {
			return errors.New("unavailable")
		}).
		Bytes(context.Background())
	if err == nil {
		t.Fatal("expected mapped error")
	}
	if !released {
		t.Error("mapped error must release the response")
	}
}

func TestRetrieve_UnmatchedPredicateFallsBack(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(500, nil, "oops"))
	})

	_, err := c.Get().URI("/x").Retrieve().
		OnStatus(StatusIs(404), func(ctx context.Context, resp *Response) error {
			return errors.New("unreached")
		}).
		Bytes(context.Background())
	if !IsStatus(err) || StatusOf(err) != 500 {
		t.Errorf("expected default mapping for unmatched status, got %v", err)
	}
}

// --- terminal tests ---

func TestRetrieve_BytesReleasesForReuse(t *testing.T) {
	reuse := false
	c := testClient(t, func(b *Builder) {
		b.Connector(connectorFunc(func(ctx context.Context, req *Request) (*Response, error) {
			var rec releaseRecorder
			resp := rec.response(200, nil, "payload")
			resp.OnRelease(func() { reuse = rec.reuse[0] })
			return resp, nil
		}))
	})

	data, err := c.Get().URI("/x").Retrieve().Bytes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected payload, got %q", data)
	}
	if !reuse {
		t.Error("Bytes must release the connection for reuse")
	}
}

func TestRetrieve_ToBodiless(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(202, http.Header{"X-Job": []string{"42"}}, `{"ignored":true}`))
	})

	entity, err := c.Post().URI("/jobs").Retrieve().ToBodiless(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.StatusCode != 202 {
		t.Errorf("expected 202, got %d", entity.StatusCode)
	}
	if entity.Header.Get("X-Job") != "42" {
		t.Errorf("expected header passthrough, got %v", entity.Header)
	}
}

func TestRetrieve_BodyAsNoContent(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(http.StatusNoContent, nil, ""))
	})

	got, err := BodyAs[user](context.Background(), c.Delete().URI("/users/1").Retrieve())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (user{}) {
		t.Errorf("expected zero value for no content, got %+v", got)
	}
}

func TestRetrieve_BodyAsPointerTarget(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(200, jsonHeader(), `{"id":5,"name":"P"}`))
	})

	got, err := BodyAs[*user](context.Background(), c.Get().URI("/x").Retrieve())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != 5 {
		t.Errorf("expected pointer target, got %+v", got)
	}
}

func TestRetrieve_BodyStreamTyped(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(200, http.Header{"Content-Type": []string{"application/json"}},
			`[{"id":1,"name":"a"},{"id":2,"name":"b"}]`))
	})

	seq, err := BodyStream[user](context.Background(), c.Get().URI("/x").Retrieve())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer seq.Close()

	ctx := context.Background()
	var ids []int
	for {
		u, ok, err := seq.Next(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		ids = append(ids, u.ID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("expected ids [1 2], got %v", ids)
	}
}

func TestRetrieve_BuildErrorShortCircuits(t *testing.T) {
	executed := false
	c := testClient(t, func(b *Builder) {
		b.Connector(connectorFunc(func(ctx context.Context, req *Request) (*Response, error) {
			executed = true
			return respondWith(200, nil, ""), nil
		}))
	})

	_, err := c.Get().URI("/users/{id}").Retrieve().Bytes(context.Background())
	if !IsInvalidRequest(err) {
		t.Fatalf("expected build error, got %v", err)
	}
	if executed {
		t.Error("exchange must not run when the build failed")
	}
}

func TestRetrieve_DecodeErrorSurfacesTyped(t *testing.T) {
	c := testClient(t, func(b *Builder) {
		b.Connector(stubConnector(200, jsonHeader(), `{"id": "not-an-int"}`))
	})

	_, err := BodyAs[user](context.Background(), c.Get().URI("/x").Retrieve())
	if !IsDecode(err) {
		t.Errorf("expected decode error, got %v", err)
	}
	var je *json.UnmarshalTypeError
	if !errors.As(err, &je) {
		t.Errorf("expected wrapped json type error, got %v", err)
	}
}
