package audit

import (
	"testing"
	"time"
)

func TestRedactSensitiveKeys(t *testing.T) {
	t.Parallel()

	got := Redact(map[string]any{
		"pin":         "1234",
		"credential":  "secret",
		"card_number": "4111 1111 1111 1111",
		"card_id":     "CARD001",
		"reason":      "Lost card",
	})

	if got["pin"] != "[REDACTED]" || got["credential"] != "[REDACTED]" {
		t.Fatalf("credentials leaked: %v", got)
	}
	if got["card_number"] != "****1111" {
		t.Fatalf("card number not masked to last four: %v", got["card_number"])
	}
	if got["card_id"] != "CARD001" || got["reason"] != "Lost card" {
		t.Fatalf("non-sensitive args must pass through unchanged: %v", got)
	}
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := map[string]any{"pin": "1234"}
	Redact(in)
	if in["pin"] != "1234" {
		t.Fatal("Redact must copy, not mutate")
	}
}

func TestRedactEmpty(t *testing.T) {
	t.Parallel()

	if got := Redact(nil); got != nil {
		t.Fatalf("expected nil for empty args, got %v", got)
	}
}

func TestMaskCardNumberShort(t *testing.T) {
	t.Parallel()

	if got := maskCardNumber("123"); got != "****" {
		t.Fatalf("short numbers must not echo digits: %q", got)
	}
}

func TestRecorderMonotonicTimestamps(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		r.Emit(Event{SessionID: "sess-1", Kind: KindToolCall})
	}

	events := r.Events("sess-1")
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if !events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d: %v then %v",
				i, events[i-1].Timestamp, events[i].Timestamp)
		}
	}
}

func TestRecorderScopesEventsBySession(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Emit(Event{SessionID: "a", Kind: KindClassification})
	r.Emit(Event{SessionID: "b", Kind: KindToolCall})
	r.Emit(Event{SessionID: "a", Kind: KindToolCall})

	if got := len(r.Events("a")); got != 2 {
		t.Fatalf("session a: expected 2 events, got %d", got)
	}
	if got := len(r.Events("b")); got != 1 {
		t.Fatalf("session b: expected 1 event, got %d", got)
	}
	if got := len(r.All()); got != 3 {
		t.Fatalf("All: expected 3 events, got %d", got)
	}
}

// captureSink records exactly what a non-recorder sink would see.
type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(ev Event) {
	c.events = append(c.events, ev)
}

func TestStamperEverySinkSeesStampedTimestamp(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	capture := &captureSink{}
	auditor := NewStamper(Fanout{recorder, capture})

	auditor.Emit(Event{SessionID: "s1", Kind: KindToolCall, Tool: "block_card", Outcome: "success"})
	auditor.Emit(Event{SessionID: "s1", Kind: KindToolCall, Tool: "block_card", Outcome: "success"})

	if len(capture.events) != 2 {
		t.Fatalf("expected 2 events at the external sink, got %d", len(capture.events))
	}
	for i, ev := range capture.events {
		if ev.Timestamp.IsZero() {
			t.Fatalf("external sink received zero timestamp at %d: %+v", i, ev)
		}
	}
	if !capture.events[1].Timestamp.After(capture.events[0].Timestamp) {
		t.Fatalf("external sink timestamps not strictly increasing: %v then %v",
			capture.events[0].Timestamp, capture.events[1].Timestamp)
	}

	recorded := recorder.Events("s1")
	for i := range recorded {
		if !recorded[i].Timestamp.Equal(capture.events[i].Timestamp) {
			t.Fatalf("sinks disagree on timestamp %d: recorder=%v capture=%v",
				i, recorded[i].Timestamp, capture.events[i].Timestamp)
		}
	}
}

func TestStamperMonotonicUnderFixedClock(t *testing.T) {
	t.Parallel()

	capture := &captureSink{}
	auditor := NewStamper(capture)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	auditor.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		auditor.Emit(Event{SessionID: "s1", Kind: KindVerification})
	}
	for i := 1; i < len(capture.events); i++ {
		if !capture.events[i].Timestamp.After(capture.events[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d: %v then %v",
				i, capture.events[i-1].Timestamp, capture.events[i].Timestamp)
		}
	}
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	f := Fanout{nil, r}
	f.Emit(Event{SessionID: "sess-1", Kind: KindError})
	if len(r.All()) != 1 {
		t.Fatal("fanout must deliver past nil sinks")
	}
}
