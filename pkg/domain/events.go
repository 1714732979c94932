package domain

import "time"

// EventType defines the category of a replay event.
type EventType string

const (
	EventUndo       EventType = "undo"
	EventRedo       EventType = "redo"
	EventInvalidate EventType = "invalidate"
)

// ReplayEvent describes one finished undo or redo step.
type ReplayEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Post      int       `json:"post"`
	Label     string    `json:"label,omitempty"`
	Records   int       `json:"records"`
	Position  int       `json:"position"`
}

// InvalidateEvent describes a history wipe.
type InvalidateEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	// Discarded is the number of posts (sentinel excluded) that were dropped.
	Discarded int `json:"discarded"`
}

// LifecycleHooks defines callbacks for undo stack observability.
type LifecycleHooks struct {
	OnUndo       func(*ReplayEvent)
	OnRedo       func(*ReplayEvent)
	OnInvalidate func(*InvalidateEvent)
}
