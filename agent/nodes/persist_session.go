package nodes

import (
	"github.com/bankabc/voice-agent/agent/state"
)

// PersistSession commits the turn's session mutations. A turn that failed
// earlier never reaches this node, so its mutations are discarded and the
// stored session (PendingAction included) stays as it was.
func PersistSession(in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}

	updated := in.Session
	committed, err := store.Update(in.SessionID, func(s *state.Session) error {
		*s = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	in.Session = committed
	return in, nil
}
