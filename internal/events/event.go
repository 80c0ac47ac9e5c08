// Package events provides domain event definitions for decoupled
// communication between modules. Infrastructure (Bus, Handler) lives in
// platform/events.
package events

import (
	"trafficpool_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Capture Domain Events
// =============================================================================

// LeadsCaptured is published after a bulk ingest lands in the store.
type LeadsCaptured struct {
	BaseEvent
	EventID string   `json:"eventId"`
	LeadIDs []string `json:"leadIds"`
	Channel string   `json:"channel"`
}

func (e LeadsCaptured) EventName() string { return "capture.leads.captured" }

// =============================================================================
// Traffic Pool Domain Events
// =============================================================================

// LeadsPooled is published when leads are assigned to a pool.
type LeadsPooled struct {
	BaseEvent
	PoolID        string   `json:"poolId"`
	Added         []string `json:"added"`
	AlreadyMember []string `json:"alreadyMember"`
}

func (e LeadsPooled) EventName() string { return "trafficpool.leads.pooled" }

// PoolCreated is published when a new pool is added to the catalog.
type PoolCreated struct {
	BaseEvent
	PoolID string `json:"poolId"`
	Name   string `json:"name"`
}

func (e PoolCreated) EventName() string { return "trafficpool.pool.created" }

// PoolRemoved is published after a pool deletion cascade completes.
type PoolRemoved struct {
	BaseEvent
	PoolID string `json:"poolId"`
}

func (e PoolRemoved) EventName() string { return "trafficpool.pool.removed" }

// ScoresRecomputed is published when a background rescore pass finishes.
type ScoresRecomputed struct {
	BaseEvent
	Leads   int    `json:"leads"`
	Version string `json:"version"`
}

func (e ScoresRecomputed) EventName() string { return "trafficpool.scores.recomputed" }
