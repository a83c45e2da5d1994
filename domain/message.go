// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted, except for their read receipts.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Message represents a persisted chat message.
type Message struct {
	ID          uuid.UUID
	RoomID      RoomID
	SenderID    UserID
	RecipientID UserID // only set for direct rooms
	Content     string
	CreatedAt   time.Time
	ReadBy      []UserID
}

// MessageDraft is what the pipeline hands to storage before the message exists.
type MessageDraft struct {
	RoomID      RoomID
	SenderID    UserID
	RecipientID UserID
	Content     string
	CreatedAt   time.Time
}

func (m Message) IsReadBy(userID UserID) bool {
	return slices.Contains(m.ReadBy, userID)
}
