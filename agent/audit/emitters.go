package audit

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Stamper assigns each event its audit timestamp before it reaches the
// sinks behind it, forcing per-session timestamps strictly monotonic.
// Producers emit with a zero timestamp; stamping once up front means every
// sink records the same ordered value.
type Stamper struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
	next Emitter
}

func NewStamper(next Emitter) *Stamper {
	return &Stamper{
		last: make(map[string]time.Time),
		now:  time.Now,
		next: next,
	}
}

func (s *Stamper) Emit(ev Event) {
	s.mu.Lock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	if last, ok := s.last[ev.SessionID]; ok && !ev.Timestamp.After(last) {
		ev.Timestamp = last.Add(time.Nanosecond)
	}
	s.last[ev.SessionID] = ev.Timestamp
	s.mu.Unlock()

	if s.next != nil {
		s.next.Emit(ev)
	}
}

// Recorder keeps events in memory for inspection and replay. Timestamps
// within a session are forced strictly monotonic so event order is always
// reconstructible from the records alone, with or without a Stamper in
// front.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	last   map[string]time.Time
	now    func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	if last, ok := r.last[ev.SessionID]; ok && !ev.Timestamp.After(last) {
		ev.Timestamp = last.Add(time.Nanosecond)
	}
	r.last[ev.SessionID] = ev.Timestamp
	r.events = append(r.events, ev)
}

// Events returns the recorded events for one session, ordered by timestamp.
func (r *Recorder) Events(sessionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range r.events {
		if ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// All returns a snapshot of every recorded event.
func (r *Recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// LogEmitter writes every event to the process log.
type LogEmitter struct{}

func (LogEmitter) Emit(ev Event) {
	log.Info().
		Str("session_id", ev.SessionID).
		Str("kind", string(ev.Kind)).
		Str("flow", ev.Flow).
		Str("tool", ev.Tool).
		Str("outcome", ev.Outcome).
		Interface("args", ev.Args).
		Time("at", ev.Timestamp).
		Msg("audit event")
}

// Fanout delivers each event to every sink in order.
type Fanout []Emitter

func (f Fanout) Emit(ev Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(ev)
		}
	}
}
