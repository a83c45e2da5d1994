package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationMessageSent NotificationKind = "message_sent"
)

type EntityType string

const (
	EntityRoom    EntityType = "room"
	EntitySession EntityType = "session"
)

// Notification is created once per (event, recipient) pair. Only the Read
// flag ever changes afterwards.
type Notification struct {
	ID         uuid.UUID
	Recipient  UserID
	Actor      UserID
	Kind       NotificationKind
	EntityID   string
	EntityType EntityType
	Read       bool
	CreatedAt  time.Time
}

type NotificationDraft struct {
	Recipient  UserID
	Actor      UserID
	Kind       NotificationKind
	EntityID   string
	EntityType EntityType
	CreatedAt  time.Time
}
