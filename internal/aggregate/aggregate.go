// Package aggregate is the event-sourced aggregate root for one research
// run: ResearchState is never mutated directly outside of Execute/Apply,
// so every state change is recorded as a replayable domain event, the way
// the teacher's core/domain/aggregate package does.
package aggregate

import (
	"fmt"
	"sync"

	"deepresearch/internal/domainevents"
	"deepresearch/internal/state"
)

// Aggregate wraps a ResearchState with versioning and uncommitted-event
// tracking for a checkpoint sink to persist.
type Aggregate struct {
	mu sync.RWMutex

	state             *state.ResearchState
	version           int
	uncommittedEvents []domainevents.Event
}

// New creates a fresh aggregate for a new run.
func New(threadID, query string) *Aggregate {
	return &Aggregate{
		state: state.New(threadID, query),
	}
}

// LoadFromEvents reconstructs an aggregate by replaying a persisted
// event stream, mirroring the teacher's aggregate.LoadFromEvents.
func LoadFromEvents(threadID string, events []domainevents.Event) *Aggregate {
	a := &Aggregate{state: &state.ResearchState{ThreadID: threadID}}
	for _, e := range events {
		a.applyUnlocked(e)
	}
	a.uncommittedEvents = nil
	return a
}

// State returns a read-only snapshot of the current state. Callers must
// not mutate the returned value's slices in place; stages receive a copy
// of scalar fields and append-only deltas instead.
func (a *Aggregate) State() state.ResearchState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.state
}

// Version returns the current aggregate version.
func (a *Aggregate) Version() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

// GetUncommittedEvents returns events not yet handed to a checkpoint sink.
func (a *Aggregate) GetUncommittedEvents() []domainevents.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domainevents.Event, len(a.uncommittedEvents))
	copy(out, a.uncommittedEvents)
	return out
}

// ClearUncommittedEvents marks all pending events as persisted.
func (a *Aggregate) ClearUncommittedEvents() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uncommittedEvents = nil
}

// Command is a state-transition request. Validate checks stage-specific
// preconditions (including I3 and I4) against the current state before
// Execute builds an event from it; I5 is enforced by Execute itself.
type Command interface {
	Validate(s *state.ResearchState) error
}

// Execute validates cmd, builds its event at the next version, applies it,
// and records it as uncommitted. Returns the event for the caller to
// inspect (e.g. to publish on the event bus).
func (a *Aggregate) Execute(cmd Command) (domainevents.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.IsEnded() {
		return nil, fmt.Errorf("aggregate: state already ended, no further mutation permitted")
	}
	if err := cmd.Validate(a.state); err != nil {
		return nil, err
	}

	event := buildEvent(cmd, a.state.ThreadID, a.version+1)
	a.applyUnlocked(event)
	a.uncommittedEvents = append(a.uncommittedEvents, event)
	return event, nil
}
