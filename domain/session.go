package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionMedia is a media item shared inside a shadow session.
type SessionMedia struct {
	ID        uuid.UUID
	SessionID SessionID
	SenderID  UserID
	MediaURL  string
	MediaType string
	CreatedAt time.Time
}

// SessionState is handed to a participant the first time they join a session.
type SessionState struct {
	SessionID    SessionID
	Participants []Participant
	Media        []SessionMedia
}
