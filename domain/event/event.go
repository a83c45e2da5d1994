package event

import (
	"chat-pulse/domain"
	"encoding/json"
	"time"
)

// Type names an envelope kind on the wire.
type Type string

// Client -> server
const (
	Auth               Type = "auth"
	Pong               Type = "pong"
	JoinRoom           Type = "join_room"
	LeaveRoom          Type = "leave_room"
	SendMessage        Type = "send_message"
	Typing             Type = "typing"
	JoinShadowSession  Type = "join_shadow_session"
	LeaveShadowSession Type = "leave_shadow_session"
	SessionMessageIn   Type = "session_message"
	MediaShared        Type = "media_shared"
	MarkMessagesRead   Type = "mark_messages_read"
)

// Server -> client
const (
	AuthSuccess        Type = "auth_success"
	Error              Type = "error"
	Ping               Type = "ping"
	NewMessage         Type = "new_message"
	ParticipantJoined  Type = "participant_joined"
	ParticipantLeft    Type = "participant_left"
	SessionMessageOut  Type = "session_message"
	SessionMediaOut    Type = "session_media"
	SessionStateOut    Type = "session_state"
	UserTyping         Type = "user_typing"
	FriendStatusChange Type = "friend_status_change"
	NewNotification    Type = "new_notification"
	MessagesRead       Type = "messages_read"
	RoomJoined         Type = "room_joined"
	RoomLeft           Type = "room_left"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is implemented by every server -> client payload.
type Outbound interface {
	EventType() Type
}

// Encode wraps an outbound payload in an envelope and marshals it.
func Encode(evt Outbound) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: evt.EventType(), Payload: payload})
}

type AuthSuccessEvent struct {
	Identity domain.UserID `json:"identity"`
}

func (AuthSuccessEvent) EventType() Type { return AuthSuccess }

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventType() Type { return Error }

type PingEvent struct{}

func (PingEvent) EventType() Type { return Ping }

type MessageView struct {
	ID          string        `json:"id"`
	RoomID      domain.RoomID `json:"roomId"`
	SenderID    domain.UserID `json:"senderId"`
	SenderName  string        `json:"senderName"`
	RecipientID domain.UserID `json:"recipientId,omitempty"`
	Content     string        `json:"content"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type NewMessageEvent struct {
	Message MessageView `json:"message"`
}

func (NewMessageEvent) EventType() Type { return NewMessage }

type ParticipantJoinedEvent struct {
	Identity    domain.UserID `json:"identity"`
	DisplayName string        `json:"displayName"`
	Timestamp   time.Time     `json:"timestamp"`
}

func (ParticipantJoinedEvent) EventType() Type { return ParticipantJoined }

type ParticipantLeftEvent struct {
	Identity    domain.UserID `json:"identity"`
	DisplayName string        `json:"displayName"`
	Timestamp   time.Time     `json:"timestamp"`
}

func (ParticipantLeftEvent) EventType() Type { return ParticipantLeft }

type SessionMessageEvent struct {
	SessionID  domain.SessionID `json:"sessionId"`
	SenderID   domain.UserID    `json:"senderId"`
	SenderName string           `json:"senderName"`
	Content    string           `json:"content"`
	Timestamp  time.Time        `json:"timestamp"`
}

func (SessionMessageEvent) EventType() Type { return SessionMessageOut }

type SessionMediaEvent struct {
	ID         string           `json:"id"`
	SessionID  domain.SessionID `json:"sessionId"`
	SenderID   domain.UserID    `json:"senderId"`
	SenderName string           `json:"senderName"`
	MediaURL   string           `json:"mediaUrl"`
	MediaType  string           `json:"mediaType"`
	Timestamp  time.Time        `json:"timestamp"`
}

func (SessionMediaEvent) EventType() Type { return SessionMediaOut }

type ParticipantView struct {
	Identity    domain.UserID `json:"identity"`
	DisplayName string        `json:"displayName"`
}

type SessionStateEvent struct {
	SessionID    domain.SessionID    `json:"sessionId"`
	Participants []ParticipantView   `json:"participants"`
	Media        []SessionMediaEvent `json:"media"`
}

func (SessionStateEvent) EventType() Type { return SessionStateOut }

type UserTypingEvent struct {
	Identity domain.UserID `json:"identity"`
	RoomID   domain.RoomID `json:"roomId"`
	IsTyping bool          `json:"isTyping"`
}

func (UserTypingEvent) EventType() Type { return UserTyping }

type FriendStatusChangeEvent struct {
	Identity domain.UserID `json:"identity"`
	IsOnline bool          `json:"isOnline"`
}

func (FriendStatusChangeEvent) EventType() Type { return FriendStatusChange }

type ActorView struct {
	Identity    domain.UserID `json:"identity"`
	DisplayName string        `json:"displayName"`
}

type NewNotificationEvent struct {
	ID         string                  `json:"id"`
	Actor      ActorView               `json:"actor"`
	Kind       domain.NotificationKind `json:"kind"`
	EntityID   string                  `json:"entityId"`
	EntityType domain.EntityType       `json:"entityType"`
	RoomID     domain.RoomID           `json:"roomId,omitempty"`
	Message    string                  `json:"message"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func (NewNotificationEvent) EventType() Type { return NewNotification }

type MessagesReadEvent struct {
	ReadBy   domain.UserID `json:"readBy"`
	RoomID   domain.RoomID `json:"roomId"`
	Messages []string      `json:"messages"`
}

func (MessagesReadEvent) EventType() Type { return MessagesRead }

type RoomJoinedEvent struct {
	RoomID  domain.RoomID `json:"roomId"`
	History []MessageView `json:"history"`
}

func (RoomJoinedEvent) EventType() Type { return RoomJoined }

type RoomLeftEvent struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (RoomLeftEvent) EventType() Type { return RoomLeft }
