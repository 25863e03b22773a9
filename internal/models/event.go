package models

import (
	"time"
)

// EventType categorizes state-change events published by the controller.
type EventType string

const (
	// Account events
	EventTypeAccountActivated   EventType = "account.activated"
	EventTypeAccountDeactivated EventType = "account.deactivated"
	EventTypeAccountsReplaced   EventType = "accounts.replaced"

	// Store events
	EventTypeStoreUpdated  EventType = "store.updated"
	EventTypeStoreFetching EventType = "store.fetching"

	// Message events
	EventTypeMessageReceived EventType = "message.received"
	EventTypeMessageDeleted  EventType = "message.deleted"

	// Selection events
	EventTypeSelectionChanged EventType = "selection.changed"

	// Connection events
	EventTypeConnectionChanged EventType = "connection.changed"

	// User-facing advisories
	EventTypeAdvisory EventType = "advisory"
)

// EntityType identifies the kind of entity an event relates to.
type EntityType string

const (
	EntityTypeAccount EntityType = "account"
	EntityTypeMessage EntityType = "message"
	EntityTypeSystem  EntityType = "system"
)

// Event is a state-change notice consumed by the presentation layer.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity (account or message id).
	EntityID string `json:"entity_id"`

	// Metadata carries additional context, e.g. an advisory title.
	Metadata map[string]string `json:"metadata,omitempty"`
}
