package models

import "time"

// DerivedSignal is a saved derived-signal definition. Formula and SourceChannels are
// passed unchanged into evaluation.
type DerivedSignal struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Formula        string    `json:"formula"`
	Units          string    `json:"units,omitempty"`
	Description    string    `json:"description,omitempty"`
	SourceChannels []string  `json:"sourceChannels"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SignalEvent is published when the registry changes.
type SignalEvent struct {
	Type   string         `json:"type"` // "created" | "deleted"
	ID     string         `json:"id"`
	Signal *DerivedSignal `json:"signal,omitempty"`
	At     int64          `json:"at"` // epoch ms
}

const (
	SignalCreated = "created"
	SignalDeleted = "deleted"
)
