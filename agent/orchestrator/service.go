// Package orchestrator is the conversation entry point: one user turn in,
// one response out, with classification, verification gating, flow dispatch
// and auditing behind a compiled turn graph.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/flow"
	"github.com/bankabc/voice-agent/agent/nodes"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/verify"
)

var ErrInvalidMessage = nodes.ErrInvalidMessage

type Orchestrator struct {
	store      state.Store
	gate       *verify.Gate
	classifier contract.Classifier
	dispatcher *flow.Dispatcher
	completer  contract.Completer
	auditor    audit.Emitter

	graphRunner compose.Runnable[nodes.GraphInput, nodes.GraphOutput]

	// turnLocks serializes concurrent turns for the same session id, so a
	// duplicated network retry cannot interleave with the original turn.
	// Sessions lock independently; turns for different sessions run in
	// parallel.
	turnLocks sync.Map

	now func() time.Time
}

// New wires the orchestrator. completer may be nil: replies then stay in
// their deterministic form.
func New(
	store state.Store,
	gate *verify.Gate,
	classifier contract.Classifier,
	dispatcher *flow.Dispatcher,
	completer contract.Completer,
	auditor audit.Emitter,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if gate == nil {
		return nil, errors.New("verification gate is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if dispatcher == nil {
		return nil, errors.New("flow dispatcher is required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}

	o := &Orchestrator{
		store:      store,
		gate:       gate,
		classifier: classifier,
		dispatcher: dispatcher,
		completer:  completer,
		auditor:    auditor,
		now:        time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user turn and returns the structured response
// handed back to the transport layer.
func (o *Orchestrator) HandleTurn(ctx context.Context, req contract.TurnRequest) (contract.TurnResponse, error) {
	if key := strings.TrimSpace(req.SessionID); key != "" {
		mu := o.lockFor(key)
		mu.Lock()
		defer mu.Unlock()
	}

	out, err := o.graphRunner.Invoke(ctx, nodes.GraphInput{Request: req})
	if err != nil {
		return contract.TurnResponse{}, err
	}
	return out.Response, nil
}

func (o *Orchestrator) lockFor(sessionID string) *sync.Mutex {
	v, _ := o.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ExpireSession removes the stored session and releases its turn lock.
func (o *Orchestrator) ExpireSession(sessionID string) error {
	key := strings.TrimSpace(sessionID)
	if err := o.store.Expire(key); err != nil {
		return err
	}
	o.turnLocks.Delete(key)
	return nil
}

type idleReaper interface {
	ExpireIdle(maxIdle time.Duration) []string
}

// ReapIdleSessions sweeps sessions idle longer than maxIdle out of the
// store, dropping their turn locks with them so the lock map cannot outgrow
// the session set. Stores without idle reaping are left alone.
func (o *Orchestrator) ReapIdleSessions(maxIdle time.Duration) int {
	reaper, ok := o.store.(idleReaper)
	if !ok {
		return 0
	}
	removed := reaper.ExpireIdle(maxIdle)
	for _, id := range removed {
		o.turnLocks.Delete(id)
	}
	return len(removed)
}
