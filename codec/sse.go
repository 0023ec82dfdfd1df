package codec

import (
	"bufio"
	"context"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/moods445/clientkit/stream"
)

// Event is a single server-sent event.
type Event struct {
	// Name is the event type (from "event:" lines). Empty for data-only
	// events.
	Name string
	// Data is the payload; multi-line data is joined with newlines.
	Data string
	// ID is the last event ID (from "id:" lines).
	ID string
	// Retry is the reconnection delay advised by the server, zero if the
	// stream never sent one.
	Retry time.Duration
}

var (
	eventType      = typeOf[Event]()
	eventSliceType = typeOf[[]Event]()
)

// SSEDecoder decodes text/event-stream bodies. Streaming to Event elements
// is the normal mode; aggregate decoding to []Event reads the stream to its
// end first, so it only suits finite streams.
type SSEDecoder struct{}

func (c *SSEDecoder) CanDecode(t reflect.Type, mt MediaType) bool {
	if !TextEventStream.EqualsTypeAndSubtype(mt) {
		return false
	}
	return t == eventType || t == eventSliceType
}

func (c *SSEDecoder) Decode(r io.Reader, t reflect.Type, mt MediaType) (any, error) {
	sc := newEventScanner(r)
	if t == eventType {
		ev, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.ErrUnexpectedEOF
		}
		return ev, nil
	}
	var events []Event
	for {
		ev, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return events, nil
		}
		events = append(events, ev)
	}
}

func (c *SSEDecoder) DecodeStream(r io.Reader, t reflect.Type, mt MediaType) stream.Seq[any] {
	if t == eventSliceType {
		return singleValueSeq(func() (any, error) { return c.Decode(r, t, mt) })
	}
	sc := newEventScanner(r)
	return stream.Func(func(ctx context.Context) (any, bool, error) {
		ev, ok, err := sc.next()
		if err != nil || !ok {
			return nil, false, err
		}
		return ev, true, nil
	}, nil)
}

type eventScanner struct {
	scanner *bufio.Scanner
	retry   time.Duration
}

func newEventScanner(r io.Reader) *eventScanner {
	return &eventScanner{scanner: bufio.NewScanner(r)}
}

// next returns the next event, or ok=false at end of stream. An event is
// dispatched on the first blank line after at least one data field; blocks
// without data (comments, lone field lines) are skipped.
func (s *eventScanner) next() (Event, bool, error) {
	var ev Event
	hasData := false

	flush := func() Event {
		ev.Retry = s.retry
		return ev
	}

	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				return flush(), true, nil
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitEventLine(line)
		switch field {
		case "data":
			if hasData {
				ev.Data += "\n" + value
			} else {
				ev.Data = value
				hasData = true
			}
		case "event":
			ev.Name = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				s.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := s.scanner.Err(); err != nil {
		return Event{}, false, err
	}
	if hasData {
		return flush(), true, nil
	}
	return Event{}, false, nil
}

// splitEventLine splits "field: value", stripping the single space the
// protocol allows after the colon.
func splitEventLine(line string) (field, value string) {
	field, value, ok := strings.Cut(line, ":")
	if !ok {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
