package domain

import "slices"

type UserID string

type RoomID string

type SessionID string

// RoomType distinguishes a many-member group room from a 1:1 conversation.
type RoomType string

const (
	RoomGroup  RoomType = "group"
	RoomDirect RoomType = "direct"
)

// Room is a durable chat room as persisted by the storage collaborator.
type Room struct {
	ID      RoomID
	Type    RoomType
	Name    string
	Members []UserID
}

func (r Room) HasMember(userID UserID) bool {
	return slices.Contains(r.Members, userID)
}

// Counterpart returns the other participant of a direct room.
func (r Room) Counterpart(userID UserID) (UserID, bool) {
	if r.Type != RoomDirect {
		return "", false
	}
	for _, m := range r.Members {
		if m != userID {
			return m, true
		}
	}
	return "", false
}

// RoomKind tells which membership semantics apply to a live channel.
type RoomKind string

const (
	KindChat    RoomKind = "chat"
	KindSession RoomKind = "session"
)

// RoomRef identifies a live channel. Chat room ids and session ids live in
// separate namespaces so the kind is part of the key.
type RoomRef struct {
	Kind RoomKind
	ID   string
}

func ChatRoom(id RoomID) RoomRef {
	return RoomRef{Kind: KindChat, ID: string(id)}
}

func SessionRoom(id SessionID) RoomRef {
	return RoomRef{Kind: KindSession, ID: string(id)}
}

func (r RoomRef) String() string {
	return string(r.Kind) + ":" + r.ID
}
