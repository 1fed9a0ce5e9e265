package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// TraceClient is the external tracing collector.
type TraceClient interface {
	SendEvent(ctx context.Context, name string, at time.Time, payload any) error
}

// TraceSink forwards audit events to the tracing collector fire-and-forget:
// delivery runs off the turn's critical path and a collector failure is
// logged, never surfaced to the user-facing turn.
type TraceSink struct {
	client  TraceClient
	timeout time.Duration
}

func NewTraceSink(client TraceClient) *TraceSink {
	return &TraceSink{client: client, timeout: 10 * time.Second}
}

func (s *TraceSink) Emit(ev Event) {
	if s == nil || s.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.client.SendEvent(ctx, string(ev.Kind), ev.Timestamp, ev); err != nil {
			log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("trace emit failed")
		}
	}()
}
