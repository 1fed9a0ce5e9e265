// Package audit records every classification decision, verification attempt
// and tool invocation as structured, replayable events. Arguments are
// redacted before any emitter sees them; emit failures never fail a turn.
package audit

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindClassification Kind = "classification"
	KindToolCall       Kind = "tool_call"
	KindVerification   Kind = "verification_attempt"
	KindError          Kind = "error"
)

// Event is one immutable audit record. Within a session, events are
// strictly ordered by timestamp.
type Event struct {
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      Kind           `json:"kind"`
	Flow      string         `json:"flow,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Outcome   string         `json:"outcome"`
	Detail    string         `json:"detail,omitempty"`
}

type Emitter interface {
	Emit(ev Event)
}

const redactedPlaceholder = "[REDACTED]"

// sensitiveArgKeys never leave the process in clear text.
var sensitiveArgKeys = map[string]bool{
	"pin":         true,
	"credential":  true,
	"card_number": true,
}

// Redact returns a copy of args safe for audit sinks: PINs and credentials
// replaced, card numbers masked to the last four digits.
func Redact(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		key := strings.ToLower(k)
		switch {
		case key == "card_number":
			out[k] = maskCardNumber(fmt.Sprint(v))
		case sensitiveArgKeys[key]:
			out[k] = redactedPlaceholder
		default:
			out[k] = v
		}
	}
	return out
}

func maskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}
