package models

import (
	"time"
)

// Address is a sender or recipient of a message.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Display returns the name if set, otherwise the raw address.
func (a Address) Display() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Address
}

// Message is a single mail item. A message arrives in one of two
// completeness tiers: a summary from a bulk listing (IsComplete=false)
// or a fully fetched message with body content (IsComplete=true).
type Message struct {
	// ID is the backend-assigned identifier for the message.
	ID string `json:"id"`

	// AccountID is the owning account.
	AccountID string `json:"account_id"`

	// From is the sender.
	From Address `json:"from"`

	// Subject is the message subject line.
	Subject string `json:"subject"`

	// Intro is a locally cached preview snippet. It may have been
	// derived from a source the full fetch does not repopulate, so
	// merges must never clobber a non-empty intro with an empty one.
	Intro string `json:"intro"`

	// Text is the plain-text body (complete messages only).
	Text string `json:"text,omitempty"`

	// HTML is the HTML body (complete messages only).
	HTML []string `json:"html,omitempty"`

	// Seen indicates the message has been read.
	Seen bool `json:"seen"`

	// IsComplete indicates the full body has been fetched.
	IsComplete bool `json:"is_complete"`

	// CreatedAt is when the message was received at the backend.
	CreatedAt time.Time `json:"created_at"`
}

// Excerpt returns a short body preview for notification payloads.
func (m Message) Excerpt() string {
	if m.Intro != "" {
		return m.Intro
	}
	return m.Subject
}

// MessageStore holds the messages of one active account together with
// the fetch status of the initial bulk load.
type MessageStore struct {
	// IsFetching is true from the moment a bulk fetch is requested
	// until its completion is processed.
	IsFetching bool

	// Err holds the last bulk-fetch failure, if any. A successful
	// fetch clears it.
	Err error

	// Messages are ordered by insertion and deduplicated by ID.
	Messages []Message
}

// NewFetchingStore returns an empty store in the loading state.
func NewFetchingStore() *MessageStore {
	return &MessageStore{IsFetching: true}
}

// Find returns the index of the message with the given id, or -1.
func (s *MessageStore) Find(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Unseen returns the number of unseen messages in the store.
func (s *MessageStore) Unseen() int {
	n := 0
	for i := range s.Messages {
		if !s.Messages[i].Seen {
			n++
		}
	}
	return n
}

// Selection identifies the currently selected account and message.
// Either field may be empty; a message is only ever selected together
// with its owning account.
type Selection struct {
	AccountID string
	MessageID string
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.AccountID == "" && s.MessageID == ""
}

// AccountMessage pairs a pushed message with its owning account.
type AccountMessage struct {
	Account Account
	Message Message
}

// AccountMessageID pairs a deleted message id with its owning account.
type AccountMessageID struct {
	Account   Account
	MessageID string
}
