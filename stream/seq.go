package stream

import (
	"context"
	"fmt"
)

// Seq provides pull-based sequential access to a stream of values.
// The consumer calls Next() to retrieve values one at a time.
// Close must be called when done to release resources.
type Seq[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the sequence.
	Close() error
}

// Func builds a Seq from a pull function and an optional close function.
// The pull function is not called again after it reports exhaustion or an
// error; either may be nil.
func Func[T any](next func(ctx context.Context) (T, bool, error), close func() error) Seq[T] {
	return &funcSeq[T]{next: next, close: close}
}

type funcSeq[T any] struct {
	next   func(ctx context.Context) (T, bool, error)
	close  func() error
	done   bool
	closed bool
}

func (s *funcSeq[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if s.done || s.closed || s.next == nil {
		return zero, false, nil
	}
	v, ok, err := s.next(ctx)
	if err != nil || !ok {
		s.done = true
	}
	return v, ok, err
}

func (s *funcSeq[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	if s.close == nil {
		return nil
	}
	return s.close()
}

// FromSlice returns a Seq that yields the elements of items in order.
func FromSlice[T any](items []T) Seq[T] {
	i := 0
	return Func(func(ctx context.Context) (T, bool, error) {
		var zero T
		if i >= len(items) {
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}, nil)
}

// Generate returns a Seq produced by repeated calls to fn with the element
// index, starting at zero. fn reports false to end the sequence.
func Generate[T any](fn func(i int) (T, bool, error)) Seq[T] {
	i := 0
	return Func(func(ctx context.Context) (T, bool, error) {
		v, ok, err := fn(i)
		i++
		return v, ok, err
	}, nil)
}

// Empty returns a Seq that is already exhausted.
func Empty[T any]() Seq[T] {
	return Func[T](nil, nil)
}

// FromChannel returns a Seq that yields values received from ch until it is
// closed. Next blocks on the channel and honors context cancellation.
func FromChannel[T any](ch <-chan T) Seq[T] {
	return Func(func(ctx context.Context) (T, bool, error) {
		var zero T
		select {
		case v, ok := <-ch:
			if !ok {
				return zero, false, nil
			}
			return v, true, nil
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}, nil)
}

// Map transforms each element of src with fn. Closing the returned Seq closes
// src. A transform error terminates the sequence.
func Map[T, U any](src Seq[T], fn func(T) (U, error)) Seq[U] {
	return Func(func(ctx context.Context) (U, bool, error) {
		var zero U
		v, ok, err := src.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		u, err := fn(v)
		if err != nil {
			return zero, false, err
		}
		return u, true, nil
	}, src.Close)
}

// Erase converts a typed Seq to a Seq[any].
func Erase[T any](src Seq[T]) Seq[any] {
	return Map(src, func(v T) (any, error) { return v, nil })
}

// Typed converts a Seq[any] to a typed Seq. An element that is not a T
// terminates the sequence with an error.
func Typed[T any](src Seq[any]) Seq[T] {
	return Map(src, func(v any) (T, error) {
		t, ok := v.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("stream: element type %T, want %T", v, zero)
		}
		return t, nil
	})
}

// Collect pulls src to exhaustion and returns the elements. The sequence is
// closed before Collect returns, including on error.
func Collect[T any](ctx context.Context, src Seq[T]) ([]T, error) {
	defer src.Close()
	var out []T
	for {
		v, ok, err := src.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Drain pulls src to exhaustion, discarding the elements, then closes it.
func Drain[T any](ctx context.Context, src Seq[T]) error {
	defer src.Close()
	for {
		_, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}
