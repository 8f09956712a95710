// Package domainevents defines the versioned domain events emitted by
// every stage transition of a research run. They are immutable facts
// that can be stored by a checkpoint sink and replayed to reconstruct a
// ResearchState, mirroring the teacher's event-sourced aggregate design.
package domainevents

import (
	"time"

	"github.com/google/uuid"
)

// BaseEvent provides identity and ordering fields common to every event.
type BaseEvent struct {
	ID          string    `json:"id"`
	AggregateID string    `json:"aggregate_id"` // thread_id
	Version     int       `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
}

func (e BaseEvent) GetID() string          { return e.ID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetVersion() int         { return e.Version }
func (e BaseEvent) GetType() string         { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// NewBase stamps a fresh BaseEvent for aggregateID at the given version.
func NewBase(aggregateID, eventType string, version int) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		AggregateID: aggregateID,
		Version:     version,
		Timestamp:   time.Now(),
		Type:        eventType,
	}
}

// Event is the interface every domain event satisfies.
type Event interface {
	GetID() string
	GetAggregateID() string
	GetVersion() int
	GetType() string
	GetTimestamp() time.Time
}
