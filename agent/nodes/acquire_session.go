package nodes

import (
	"github.com/bankabc/voice-agent/agent/state"
)

// AcquireSession loads the session for this turn, creating a fresh
// unverified one for an unseen id. The graph mutates this copy; nothing is
// visible to other turns until PersistSession commits it.
func AcquireSession(in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil {
		return nil, ErrNilGraphState
	}
	sess, err := store.GetOrCreate(in.SessionID)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	return in, nil
}
